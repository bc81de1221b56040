package tools

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intentd/internal/domain"
)

// apply dispatches a tool that must succeed and returns the next document.
func apply(t *testing.T, r *Registry, doc *domain.Document, name string, args map[string]any) *domain.Document {
	t.Helper()
	next, _, err := r.Apply(doc, name, args)
	require.NoError(t, err)
	if next == nil {
		return doc
	}
	return next
}

func TestCreateTask_BuildsSubRecords(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId":      "setup",
		"title":       "Set up project",
		"description": "Scaffold the repository",
		"steps": []any{
			map[string]any{"description": "init repo"},
			map[string]any{"description": "add CI", "status": "completed", "output": "done"},
		},
		"sources": []any{
			map[string]any{"type": "url", "reference": "https://example.com/guide"},
		},
	})

	task := doc.Tasks["setup"]
	require.Len(t, task.Steps, 2)
	assert.NotEmpty(t, task.Steps[0].ID)
	assert.NotEqual(t, task.Steps[0].ID, task.Steps[1].ID)
	assert.Equal(t, domain.StepPending, task.Steps[0].Status)
	assert.Equal(t, domain.StepCompleted, task.Steps[1].Status)
	assert.Equal(t, "done", task.Steps[1].Output)
	require.Len(t, task.Sources, 1)
	assert.Equal(t, domain.SourceURL, task.Sources[0].Type)
}

func TestCreateTask_DependsOnAddsRequiredEdges(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "a", "title": "A", "description": "first",
	})
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "b", "title": "B", "description": "second",
		"dependsOn": []any{"a"},
	})

	deps := doc.Tasks["b"].Dependencies
	require.Len(t, deps, 1)
	assert.Equal(t, domain.Dependency{From: "a", To: "b", Type: domain.DependencyRequired}, deps[0])
}

func TestCreateTask_UnknownPrerequisiteRejectedWhole(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	before := doc.Clone()

	_, _, err := r.Apply(doc, "create_task", map[string]any{
		"taskId": "b", "title": "B", "description": "second",
		"dependsOn": []any{"missing"},
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)

	// No partial task, no partial edges.
	assert.Empty(t, cmp.Diff(before, doc))
}

func TestAddDependency_CycleLeavesDocumentIdentical(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "a", "title": "A", "description": "first",
	})
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "b", "title": "B", "description": "second",
		"dependsOn": []any{"a"},
	})
	before := doc.Clone()

	next, _, err := r.Apply(doc, "add_task_dependency", map[string]any{
		"from": "b", "to": "a",
	})
	var cycle *domain.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Nil(t, next)
	assert.Empty(t, cmp.Diff(before, doc))
}

func TestUpdateTaskStatus_Gate(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "a", "title": "A", "description": "first",
	})
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "b", "title": "B", "description": "second",
		"dependsOn": []any{"a"},
	})

	_, _, err := r.Apply(doc, "update_task_status", map[string]any{"taskId": "b", "status": "completed"})
	var dep *domain.DependencyNotSatisfiedError
	require.ErrorAs(t, err, &dep)
	assert.Equal(t, []string{"a"}, dep.Missing)
	assert.Equal(t, domain.TaskPending, doc.Tasks["b"].Status)

	doc = apply(t, r, doc, "update_task_status", map[string]any{"taskId": "a", "status": "completed"})
	doc = apply(t, r, doc, "update_task_status", map[string]any{"taskId": "b", "status": "completed"})
	assert.Equal(t, domain.TaskCompleted, doc.Tasks["b"].Status)
}

func TestUpdateTask_LeavesStatusAndDependenciesAlone(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "a", "title": "A", "description": "first",
	})
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "b", "title": "B", "description": "second",
		"dependsOn": []any{"a"},
	})

	doc = apply(t, r, doc, "update_task", map[string]any{
		"taskId": "b", "title": "B renamed",
	})
	task := doc.Tasks["b"]
	assert.Equal(t, "B renamed", task.Title)
	assert.Equal(t, "second", task.Description)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Len(t, task.Dependencies, 1)
}

func TestDeleteTask_CascadeViaTool(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "a", "title": "A", "description": "first",
	})
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "b", "title": "B", "description": "second",
		"dependsOn": []any{"a"},
	})

	doc = apply(t, r, doc, "delete_task", map[string]any{"taskId": "a"})
	assert.NotContains(t, doc.Tasks, "a")
	assert.Empty(t, doc.Tasks["b"].Dependencies)

	// Deleting again is a no-op success.
	doc = apply(t, r, doc, "delete_task", map[string]any{"taskId": "a"})
	assert.Len(t, doc.Tasks, 1)
}

func TestMeaningTools_UpsertAcrossCasing(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	doc = apply(t, r, doc, "upsert_meaning_entry", map[string]any{
		"term": "Foo", "definition": "d1",
	})
	created := doc.Entities["foo"]

	doc = apply(t, r, doc, "upsert_meaning_entry", map[string]any{
		"term": "foo", "definition": "d2",
	})

	require.Len(t, doc.Entities, 1)
	entry := doc.Entities["foo"]
	assert.Equal(t, "d2", entry.Definition)
	assert.True(t, entry.CreatedAt.Equal(created.CreatedAt))
}

func TestRemoveMeaningEntry_IdempotentViaTool(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	doc = apply(t, r, doc, "add_meaning", map[string]any{
		"term": "widget", "definition": "a small UI element",
	})

	once := apply(t, r, doc, "remove_meaning_entry", map[string]any{"term": "widget"})
	twice := apply(t, r, once, "remove_meaning_entry", map[string]any{"term": "widget"})

	assert.Empty(t, cmp.Diff(once, twice))
	assert.Empty(t, twice.Entities)
}

func TestConfirmationTools(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	// Agent override path: no transition guard.
	doc = apply(t, r, doc, "set_intent_confirmation", map[string]any{
		"status": "needs_clarification",
		"prompt": "What do you mean by widget?",
		"options": []any{"small UI element", "mechanical part"},
	})
	assert.Equal(t, domain.ConfirmationNeedsClarification, doc.Confirmation.Status)
	assert.Len(t, doc.Confirmation.Options, 2)

	// Resolve keeps prompt/options and stores the response.
	doc = apply(t, r, doc, "resolve_intent_confirmation", map[string]any{
		"response": "small UI element",
	})
	assert.Equal(t, domain.ConfirmationConfirmed, doc.Confirmation.Status)
	assert.Equal(t, "What do you mean by widget?", doc.Confirmation.Prompt)
	assert.Equal(t, "small UI element", doc.Confirmation.Response)

	// Reset clears every field together.
	doc = apply(t, r, doc, "reset_intent_confirmation", nil)
	assert.Equal(t, domain.Confirmation{Status: domain.ConfirmationIdle}, doc.Confirmation)
}

func TestSetIntentConfirmation_InvalidStatus(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	_, _, err := r.Apply(doc, "set_intent_confirmation", map[string]any{
		"status": "bogus", "prompt": "x",
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestRespondClarification_Guarded(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	_, _, err := r.Apply(doc, "respond_clarification", map[string]any{"response": "early"})
	var transition *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transition)

	doc = apply(t, r, doc, "request_clarification", map[string]any{"prompt": "which one?"})
	doc = apply(t, r, doc, "respond_clarification", map[string]any{"response": "that one"})
	assert.Equal(t, domain.ConfirmationConfirmed, doc.Confirmation.Status)
	assert.Equal(t, "that one", doc.Confirmation.Response)
}

func TestAppendHistoryItem_Ordering(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()

	doc = apply(t, r, doc, "append_history_item", map[string]any{"role": "user", "content": "r1"})
	doc = apply(t, r, doc, "append_history_item", map[string]any{"role": "assistant", "content": "r2"})
	doc = apply(t, r, doc, "append_history_item", map[string]any{"role": "tool", "content": "r3", "toolName": "create_task"})

	require.Len(t, doc.History, 3)
	assert.Equal(t, "r1", doc.History[0].Content)
	assert.Equal(t, "r2", doc.History[1].Content)
	assert.Equal(t, "r3", doc.History[2].Content)
	assert.NotEqual(t, doc.History[0].ID, doc.History[1].ID)
	assert.NotEqual(t, doc.History[1].ID, doc.History[2].ID)
}

func TestReplaceDocument_StructuralChecks(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	doc = apply(t, r, doc, "append_history_item", map[string]any{"role": "user", "content": "old"})

	// A structurally valid snapshot replaces the document wholesale.
	doc = apply(t, r, doc, ReplaceDocumentTool, map[string]any{
		"document": map[string]any{
			"entities": map[string]any{
				"widget": map[string]any{"term": "widget", "definition": "a small UI element"},
			},
			"tasks":        map[string]any{},
			"confirmation": map[string]any{"status": "idle"},
			"history":      []any{},
		},
	})
	assert.Empty(t, doc.History)
	assert.Contains(t, doc.Entities, "widget")
	assert.Equal(t, []string{"widget"}, doc.EntityOrder)

	// Invalid enum values fail the structural check.
	before := doc.Clone()
	_, _, err := r.Apply(doc, ReplaceDocumentTool, map[string]any{
		"document": map[string]any{
			"entities":     map[string]any{},
			"tasks":        map[string]any{"a": map[string]any{"id": "a", "title": "A", "description": "x", "status": "bogus"}},
			"confirmation": map[string]any{"status": "idle"},
			"history":      []any{},
		},
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Empty(t, cmp.Diff(before, doc))

	// A cyclic graph is rejected even through the replacement path.
	_, _, err = r.Apply(doc, ReplaceDocumentTool, map[string]any{
		"document": map[string]any{
			"entities": map[string]any{},
			"tasks": map[string]any{
				"a": map[string]any{"id": "a", "title": "A", "description": "x", "status": "pending",
					"dependencies": []any{map[string]any{"from": "b", "to": "a", "type": "required"}}},
				"b": map[string]any{"id": "b", "title": "B", "description": "y", "status": "pending",
					"dependencies": []any{map[string]any{"from": "a", "to": "b", "type": "required"}}},
			},
			"confirmation": map[string]any{"status": "idle"},
			"history":      []any{},
		},
	})
	var cycle *domain.CycleError
	require.ErrorAs(t, err, &cycle)

	// A response is only legal alongside a confirmed status.
	_, _, err = r.Apply(doc, ReplaceDocumentTool, map[string]any{
		"document": map[string]any{
			"entities":     map[string]any{},
			"tasks":        map[string]any{},
			"confirmation": map[string]any{"status": "needs_clarification", "prompt": "what?", "response": "stale answer"},
			"history":      []any{},
		},
	})
	require.ErrorAs(t, err, &validation)
	assert.Empty(t, cmp.Diff(before, doc))
}

func TestReadOnlyTools(t *testing.T) {
	r := NewRegistry()
	doc := domain.NewDocument()
	doc = apply(t, r, doc, "add_meaning", map[string]any{
		"term": "widget", "definition": "a small UI element", "sources": []any{"user clarification"},
	})
	doc = apply(t, r, doc, "create_task", map[string]any{
		"taskId": "a", "title": "A", "description": "first",
	})

	_, result, err := r.Apply(doc, "get_meaning", map[string]any{"term": "WIDGET"})
	require.NoError(t, err)
	assert.Equal(t, "a small UI element", result.(domain.MeaningEntry).Definition)

	_, result, err = r.Apply(doc, "search_meanings", map[string]any{"query": "ui"})
	require.NoError(t, err)
	assert.Len(t, result.([]domain.MeaningEntry), 1)

	_, result, err = r.Apply(doc, "get_task", map[string]any{"taskId": "a"})
	require.NoError(t, err)
	assert.Equal(t, "A", result.(domain.TaskNode).Title)

	_, result, err = r.Apply(doc, "get_executable_tasks", nil)
	require.NoError(t, err)
	assert.Len(t, result.([]domain.TaskNode), 1)

	_, result, err = r.Apply(doc, "validate_task_graph", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"valid": true}, result)

	_, result, err = r.Apply(doc, "get_state_summary", nil)
	require.NoError(t, err)
	assert.Contains(t, result.(string), "Meaning index entries: 1")
}
