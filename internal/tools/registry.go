// Package tools is the dispatch table: every named mutation of the shared
// document, whether triggered locally or by the remote agent, funnels through
// a registered tool. Arguments are validated against the tool's parameter
// spec before its handler runs, and mutating handlers work on a clone so a
// failure never leaks partial state.
package tools

import (
	"intentd/internal/domain"
)

type ParamType string

const (
	TypeString     ParamType = "string"
	TypeStringList ParamType = "[]string"
	TypeObject     ParamType = "object"
	TypeObjectList ParamType = "[]object"
)

type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Description string
}

// Handler applies one tool to the document. Mutating handlers receive a
// clone of the prior document and edit it freely; read-only handlers receive
// the live document and must not touch it. The returned value is the tool's
// result payload.
type Handler func(doc *domain.Document, args Args) (any, error)

type Tool struct {
	Name        string
	Description string
	Params      []Param
	Mutates     bool
	Handler     Handler
}

// InputSchema renders the tool's parameter spec as a JSON-schema object, the
// shape tool-listing clients expect.
func (t Tool) InputSchema() map[string]any {
	properties := make(map[string]any, len(t.Params))
	var required []string
	for _, p := range t.Params {
		prop := map[string]any{"description": p.Description}
		switch p.Type {
		case TypeString:
			prop["type"] = "string"
		case TypeStringList:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "string"}
		case TypeObject:
			prop["type"] = "object"
		case TypeObjectList:
			prop["type"] = "array"
			prop["items"] = map[string]any{"type": "object"}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

type Registry struct {
	tools map[string]Tool
	order []string
}

// Register adds a tool to the dispatch table. Re-registering a name replaces
// the earlier entry.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Apply dispatches one tool call against doc. On success it returns the next
// document (nil when the tool is read-only) and the handler's result. On any
// error doc is untouched and the first return is nil.
func (r *Registry) Apply(doc *domain.Document, name string, args map[string]any) (*domain.Document, any, error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, nil, &domain.UnknownToolError{Name: name}
	}
	if err := validateArgs(tool, args); err != nil {
		return nil, nil, err
	}

	if !tool.Mutates {
		result, err := tool.Handler(doc, Args(args))
		return nil, result, err
	}

	next := doc.Clone()
	result, err := tool.Handler(next, Args(args))
	if err != nil {
		return nil, nil, err
	}
	return next, result, nil
}

// validateArgs checks the argument map against the tool's parameter spec:
// no unknown keys, no missing required keys, no type mismatches. It runs in
// full before the handler, so a rejected call never reaches mutation code.
func validateArgs(tool Tool, args map[string]any) error {
	specs := make(map[string]Param, len(tool.Params))
	for _, p := range tool.Params {
		specs[p.Name] = p
	}
	for name := range args {
		if _, ok := specs[name]; !ok {
			return &domain.ValidationError{Field: name, Message: "unexpected argument for tool " + tool.Name}
		}
	}
	for _, p := range tool.Params {
		value, present := args[p.Name]
		if !present || value == nil {
			if p.Required {
				return &domain.ValidationError{Field: p.Name, Message: "required argument missing"}
			}
			continue
		}
		if err := checkType(p, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(p Param, value any) error {
	switch p.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return &domain.ValidationError{Field: p.Name, Message: "must be a string"}
		}
	case TypeStringList:
		items, ok := value.([]any)
		if !ok {
			if _, ok := value.([]string); ok {
				return nil
			}
			return &domain.ValidationError{Field: p.Name, Message: "must be an array of strings"}
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return &domain.ValidationError{Field: p.Name, Message: "must be an array of strings"}
			}
		}
	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			return &domain.ValidationError{Field: p.Name, Message: "must be an object"}
		}
	case TypeObjectList:
		items, ok := value.([]any)
		if !ok {
			return &domain.ValidationError{Field: p.Name, Message: "must be an array of objects"}
		}
		for _, item := range items {
			if _, ok := item.(map[string]any); !ok {
				return &domain.ValidationError{Field: p.Name, Message: "must be an array of objects"}
			}
		}
	}
	return nil
}
