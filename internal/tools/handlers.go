package tools

import (
	"errors"
	"fmt"

	"intentd/internal/domain"
)

// ReplaceDocumentTool is the reserved pseudo-tool the synchronization channel
// uses to install a full document snapshot. It skips per-field argument
// validation but the incoming document still has to pass structural checks.
const ReplaceDocumentTool = "__replace_document__"

// NewRegistry builds the dispatch table with the full tool surface.
func NewRegistry() *Registry {
	r := &Registry{tools: make(map[string]Tool)}

	r.Register(Tool{
		Name:        "create_task",
		Description: "Create a task graph node",
		Params: []Param{
			{Name: "taskId", Type: TypeString, Description: "Task id (generated when omitted)"},
			{Name: "title", Type: TypeString, Required: true, Description: "Task title"},
			{Name: "description", Type: TypeString, Required: true, Description: "What the task is about"},
			{Name: "status", Type: TypeString, Description: "Initial status (defaults to pending)"},
			{Name: "steps", Type: TypeObjectList, Description: "Sub-steps (description, optional status/output)"},
			{Name: "sources", Type: TypeObjectList, Description: "Citations (type, reference, optional description)"},
			{Name: "dependsOn", Type: TypeStringList, Description: "Prerequisite task ids, added as required edges"},
			{Name: "dependencies", Type: TypeObjectList, Description: "Explicit dependency edges (from, optional type)"},
		},
		Mutates: true,
		Handler: handleCreateTask,
	})
	r.Register(Tool{
		Name:        "update_task",
		Description: "Merge content fields onto a task (status and dependencies are untouched)",
		Params: []Param{
			{Name: "taskId", Type: TypeString, Required: true, Description: "Task id"},
			{Name: "title", Type: TypeString, Description: "New title"},
			{Name: "description", Type: TypeString, Description: "New description"},
			{Name: "steps", Type: TypeObjectList, Description: "Replacement step list"},
			{Name: "sources", Type: TypeObjectList, Description: "Replacement source list"},
		},
		Mutates: true,
		Handler: handleUpdateTask,
	})
	r.Register(Tool{
		Name:        "update_task_status",
		Description: "Transition a task's status, gated on required prerequisites",
		Params: []Param{
			{Name: "taskId", Type: TypeString, Required: true, Description: "Task id"},
			{Name: "status", Type: TypeString, Required: true, Description: "New status"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			id := args.String("taskId")
			if err := doc.SetTaskStatus(id, domain.TaskStatus(args.String("status"))); err != nil {
				return nil, err
			}
			return doc.Tasks[id], nil
		},
	})
	r.Register(Tool{
		Name:        "delete_task",
		Description: "Delete a task and every dependency edge referencing it",
		Params: []Param{
			{Name: "taskId", Type: TypeString, Required: true, Description: "Task id"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			doc.DeleteTask(args.String("taskId"))
			return map[string]string{"status": "deleted"}, nil
		},
	})
	r.Register(Tool{
		Name:        "add_task_dependency",
		Description: "Add a dependency edge from a prerequisite task to a dependent one",
		Params: []Param{
			{Name: "from", Type: TypeString, Required: true, Description: "Prerequisite task id"},
			{Name: "to", Type: TypeString, Required: true, Description: "Dependent task id"},
			{Name: "type", Type: TypeString, Description: "required, optional, or soft (defaults to required)"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			depType := domain.DependencyRequired
			if args.Has("type") {
				depType = domain.DependencyType(args.String("type"))
			}
			if err := doc.AddDependency(args.String("from"), args.String("to"), depType); err != nil {
				return nil, err
			}
			return doc.Tasks[args.String("to")], nil
		},
	})
	r.Register(Tool{
		Name:        "remove_task_dependency",
		Description: "Remove a dependency edge (no-op when absent)",
		Params: []Param{
			{Name: "from", Type: TypeString, Required: true, Description: "Prerequisite task id"},
			{Name: "to", Type: TypeString, Required: true, Description: "Dependent task id"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			doc.RemoveDependency(args.String("from"), args.String("to"))
			return map[string]string{"status": "removed"}, nil
		},
	})
	r.Register(Tool{
		Name:        "get_task",
		Description: "Retrieve a task by id",
		Params: []Param{
			{Name: "taskId", Type: TypeString, Required: true, Description: "Task id"},
		},
		Handler: func(doc *domain.Document, args Args) (any, error) {
			task, ok := doc.Tasks[args.String("taskId")]
			if !ok {
				return nil, nil
			}
			return task, nil
		},
	})
	r.Register(Tool{
		Name:        "get_all_tasks",
		Description: "List every task graph node",
		Handler: func(doc *domain.Document, _ Args) (any, error) {
			return doc.Tasks, nil
		},
	})
	r.Register(Tool{
		Name:        "get_executable_tasks",
		Description: "List pending tasks whose required prerequisites are completed",
		Handler: func(doc *domain.Document, _ Args) (any, error) {
			return doc.ExecutableTasks(), nil
		},
	})
	r.Register(Tool{
		Name:        "validate_task_graph",
		Description: "Run full-graph cycle detection",
		Handler: func(doc *domain.Document, _ Args) (any, error) {
			if err := doc.ValidateGraph(); err != nil {
				var cycle *domain.CycleError
				if errors.As(err, &cycle) {
					return map[string]any{"valid": false, "cycle": cycle.Path}, nil
				}
				return nil, err
			}
			return map[string]any{"valid": true}, nil
		},
	})

	r.Register(Tool{
		Name:        "add_meaning",
		Description: "Create or refresh a meaning index entry",
		Params:      meaningUpsertParams(),
		Mutates:     true,
		Handler:     handleUpsertMeaning,
	})
	r.Register(Tool{
		Name:        "upsert_meaning_entry",
		Description: "Create or refresh a meaning index entry",
		Params:      meaningUpsertParams(),
		Mutates:     true,
		Handler:     handleUpsertMeaning,
	})
	r.Register(Tool{
		Name:        "update_meaning",
		Description: "Merge fields onto an existing meaning index entry",
		Params: []Param{
			{Name: "term", Type: TypeString, Required: true, Description: "Term to update"},
			{Name: "definition", Type: TypeString, Description: "New definition"},
			{Name: "sources", Type: TypeStringList, Description: "Replacement citation list"},
			{Name: "context", Type: TypeString, Description: "New context"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			return doc.UpdateMeaning(
				args.String("term"),
				args.StringPtr("definition"),
				args.StringPtr("context"),
				args.StringList("sources"),
			)
		},
	})
	r.Register(Tool{
		Name:        "delete_meaning",
		Description: "Remove a meaning index entry (no-op when absent)",
		Params:      meaningRemoveParams(),
		Mutates:     true,
		Handler:     handleRemoveMeaning,
	})
	r.Register(Tool{
		Name:        "remove_meaning_entry",
		Description: "Remove a meaning index entry (no-op when absent)",
		Params:      meaningRemoveParams(),
		Mutates:     true,
		Handler:     handleRemoveMeaning,
	})
	r.Register(Tool{
		Name:        "get_meaning",
		Description: "Fetch a meaning index entry by term",
		Params: []Param{
			{Name: "term", Type: TypeString, Required: true, Description: "Term to look up"},
		},
		Handler: func(doc *domain.Document, args Args) (any, error) {
			entry, ok := doc.GetMeaning(args.String("term"))
			if !ok {
				return nil, nil
			}
			return entry, nil
		},
	})
	r.Register(Tool{
		Name:        "search_meanings",
		Description: "Search meaning entries by term, definition, or source",
		Params: []Param{
			{Name: "query", Type: TypeString, Description: "Substring to match (empty returns all)"},
		},
		Handler: func(doc *domain.Document, args Args) (any, error) {
			return doc.SearchMeanings(args.String("query")), nil
		},
	})
	r.Register(Tool{
		Name:        "get_state_summary",
		Description: "Summarize the current meaning index and task graph",
		Handler: func(doc *domain.Document, _ Args) (any, error) {
			return fmt.Sprintf("Meaning index entries: %d. Task graph nodes: %d. History items: %d.",
				len(doc.Entities), len(doc.Tasks), len(doc.History)), nil
		},
	})

	r.Register(Tool{
		Name:        "request_clarification",
		Description: "Open the intent confirmation panel with a clarification question",
		Params: []Param{
			{Name: "prompt", Type: TypeString, Required: true, Description: "Question shown to the user"},
			{Name: "options", Type: TypeStringList, Description: "Choice strings"},
			{Name: "context", Type: TypeString, Description: "Explanatory text"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			doc.Confirmation.Request(args.String("prompt"), args.StringList("options"), args.String("context"))
			return doc.Confirmation, nil
		},
	})
	r.Register(Tool{
		Name:        "set_intent_confirmation",
		Description: "Replace the confirmation sub-state wholesale (agent override, no transition guard)",
		Params: []Param{
			{Name: "status", Type: TypeString, Required: true, Description: "idle, needs_clarification, or confirmed"},
			{Name: "prompt", Type: TypeString, Required: true, Description: "Prompt text"},
			{Name: "options", Type: TypeStringList, Description: "Choice strings"},
			{Name: "context", Type: TypeString, Description: "Explanatory text"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			status := domain.ConfirmationStatus(args.String("status"))
			if !status.Valid() {
				return nil, &domain.ValidationError{Field: "status", Message: "invalid confirmation status " + args.String("status")}
			}
			doc.Confirmation = domain.Confirmation{
				Status:  status,
				Prompt:  args.String("prompt"),
				Options: args.StringList("options"),
				Context: args.String("context"),
			}
			return doc.Confirmation, nil
		},
	})
	r.Register(Tool{
		Name:        "resolve_intent_confirmation",
		Description: "Mark the confirmation confirmed with the given response, keeping prompt and options",
		Params: []Param{
			{Name: "response", Type: TypeString, Required: true, Description: "The chosen or typed answer"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			doc.Confirmation.Resolve(args.String("response"))
			return doc.Confirmation, nil
		},
	})
	r.Register(Tool{
		Name:        "respond_clarification",
		Description: "Answer an outstanding clarification (guarded: legal only while one is outstanding)",
		Params: []Param{
			{Name: "response", Type: TypeString, Required: true, Description: "The chosen or typed answer"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			if err := doc.Confirmation.Respond(args.String("response")); err != nil {
				return nil, err
			}
			return doc.Confirmation, nil
		},
	})
	r.Register(Tool{
		Name:        "reset_intent_confirmation",
		Description: "Return the confirmation sub-state to idle, clearing all fields",
		Mutates:     true,
		Handler: func(doc *domain.Document, _ Args) (any, error) {
			doc.Confirmation.Reset()
			return doc.Confirmation, nil
		},
	})

	r.Register(Tool{
		Name:        "append_history_item",
		Description: "Append a record to the interaction log",
		Params: []Param{
			{Name: "role", Type: TypeString, Required: true, Description: "user, assistant, or tool"},
			{Name: "content", Type: TypeString, Required: true, Description: "Record text"},
			{Name: "toolName", Type: TypeString, Description: "Tool that produced the record"},
		},
		Mutates: true,
		Handler: func(doc *domain.Document, args Args) (any, error) {
			return doc.AppendHistory(domain.Role(args.String("role")), args.String("content"), args.String("toolName"))
		},
	})

	r.Register(Tool{
		Name:        ReplaceDocumentTool,
		Description: "Install a full document snapshot from the synchronization channel",
		Params: []Param{
			{Name: "document", Type: TypeObject, Required: true, Description: "Complete serialized document"},
		},
		Mutates: true,
		Handler: handleReplaceDocument,
	})

	return r
}

func meaningUpsertParams() []Param {
	return []Param{
		{Name: "term", Type: TypeString, Required: true, Description: "Term being defined"},
		{Name: "definition", Type: TypeString, Required: true, Description: "Confirmed definition"},
		{Name: "sources", Type: TypeStringList, Description: "Citation strings"},
		{Name: "context", Type: TypeString, Description: "Free-text context"},
	}
}

func meaningRemoveParams() []Param {
	return []Param{
		{Name: "term", Type: TypeString, Required: true, Description: "Term to remove"},
	}
}

func handleUpsertMeaning(doc *domain.Document, args Args) (any, error) {
	return doc.UpsertMeaning(
		args.String("term"),
		args.String("definition"),
		args.StringList("sources"),
		args.String("context"),
	)
}

func handleRemoveMeaning(doc *domain.Document, args Args) (any, error) {
	doc.RemoveMeaning(args.String("term"))
	return map[string]string{"status": "removed"}, nil
}

type stepParam struct {
	ID          string            `json:"id,omitempty"`
	Description string            `json:"description"`
	Status      domain.StepStatus `json:"status,omitempty"`
	Output      string            `json:"output,omitempty"`
}

type sourceParam struct {
	ID          string            `json:"id,omitempty"`
	Type        domain.SourceType `json:"type"`
	Reference   string            `json:"reference"`
	Description string            `json:"description,omitempty"`
}

type dependencyParam struct {
	From string                `json:"from"`
	Type domain.DependencyType `json:"type,omitempty"`
}

func decodeSteps(args Args) ([]domain.Step, error) {
	if !args.Has("steps") {
		return nil, nil
	}
	var params []stepParam
	if err := args.Decode("steps", &params); err != nil {
		return nil, err
	}
	steps := make([]domain.Step, 0, len(params))
	for _, p := range params {
		step := domain.NewStep(p.Description)
		if p.ID != "" {
			step.ID = p.ID
		}
		if p.Status != "" {
			if !p.Status.Valid() {
				return nil, &domain.ValidationError{Field: "steps", Message: "invalid step status " + string(p.Status)}
			}
			step.Status = p.Status
		}
		step.Output = p.Output
		steps = append(steps, step)
	}
	return steps, nil
}

func decodeSources(args Args) ([]domain.Source, error) {
	if !args.Has("sources") {
		return nil, nil
	}
	var params []sourceParam
	if err := args.Decode("sources", &params); err != nil {
		return nil, err
	}
	sources := make([]domain.Source, 0, len(params))
	for _, p := range params {
		if !p.Type.Valid() {
			return nil, &domain.ValidationError{Field: "sources", Message: "invalid source type " + string(p.Type)}
		}
		source := domain.NewSource(p.Type, p.Reference, p.Description)
		if p.ID != "" {
			source.ID = p.ID
		}
		sources = append(sources, source)
	}
	return sources, nil
}

func handleCreateTask(doc *domain.Document, args Args) (any, error) {
	task := domain.NewTaskNode(args.String("title"), args.String("description"))
	if args.Has("taskId") {
		task.ID = args.String("taskId")
	}
	if args.Has("status") {
		task.Status = domain.TaskStatus(args.String("status"))
	}

	steps, err := decodeSteps(args)
	if err != nil {
		return nil, err
	}
	task.Steps = steps

	sources, err := decodeSources(args)
	if err != nil {
		return nil, err
	}
	task.Sources = sources

	for _, from := range args.StringList("dependsOn") {
		task.Dependencies = append(task.Dependencies, domain.Dependency{
			From: from,
			To:   task.ID,
			Type: domain.DependencyRequired,
		})
	}
	if args.Has("dependencies") {
		var params []dependencyParam
		if err := args.Decode("dependencies", &params); err != nil {
			return nil, err
		}
		for _, p := range params {
			depType := p.Type
			if depType == "" {
				depType = domain.DependencyRequired
			}
			task.Dependencies = append(task.Dependencies, domain.Dependency{
				From: p.From,
				To:   task.ID,
				Type: depType,
			})
		}
	}

	if err := doc.AddTask(task); err != nil {
		return nil, err
	}
	return doc.Tasks[task.ID], nil
}

func handleUpdateTask(doc *domain.Document, args Args) (any, error) {
	steps, err := decodeSteps(args)
	if err != nil {
		return nil, err
	}
	sources, err := decodeSources(args)
	if err != nil {
		return nil, err
	}
	return doc.UpdateTaskFields(
		args.String("taskId"),
		args.StringPtr("title"),
		args.StringPtr("description"),
		steps,
		sources,
	)
}

func handleReplaceDocument(doc *domain.Document, args Args) (any, error) {
	next := domain.NewDocument()
	if err := args.Decode("document", next); err != nil {
		return nil, err
	}
	next.Normalize()
	if err := next.Validate(); err != nil {
		return nil, err
	}
	*doc = *next
	return map[string]string{"status": "replaced"}, nil
}
