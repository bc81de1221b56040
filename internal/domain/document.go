package domain

import (
	"sort"
)

// Document is the aggregate the session synchronizes on: the entity store,
// the task graph, the confirmation slot, and the history log. Exactly one
// live Document exists per session; the state store owns it and every
// mutation produces a full replacement, never an in-place edit visible to
// readers.
type Document struct {
	Entities     map[string]MeaningEntry `json:"entities"`
	EntityOrder  []string                `json:"entityOrder"`
	Tasks        map[string]TaskNode     `json:"tasks"`
	Confirmation Confirmation            `json:"confirmation"`
	History      []HistoryItem           `json:"history"`
}

func NewDocument() *Document {
	return &Document{
		Entities:     make(map[string]MeaningEntry),
		EntityOrder:  make([]string, 0),
		Tasks:        make(map[string]TaskNode),
		Confirmation: NewConfirmation(),
		History:      make([]HistoryItem, 0),
	}
}

// Clone deep-copies the aggregate. Handlers mutate a clone so that a failed
// mutation never leaks partial state into the published document.
func (d *Document) Clone() *Document {
	out := &Document{
		Entities:     make(map[string]MeaningEntry, len(d.Entities)),
		EntityOrder:  append([]string(nil), d.EntityOrder...),
		Tasks:        make(map[string]TaskNode, len(d.Tasks)),
		Confirmation: d.Confirmation.clone(),
		History:      append([]HistoryItem(nil), d.History...),
	}
	for key, entry := range d.Entities {
		copied := entry
		copied.Sources = append([]string(nil), entry.Sources...)
		out.Entities[key] = copied
	}
	for id, task := range d.Tasks {
		out.Tasks[id] = task.clone()
	}
	if out.EntityOrder == nil {
		out.EntityOrder = make([]string, 0)
	}
	if out.History == nil {
		out.History = make([]HistoryItem, 0)
	}
	return out
}

// Validate runs the structural checks a replacement document must pass:
// enum fields hold known values, entity keys match their terms, edges point
// at known tasks, and the graph is acyclic.
func (d *Document) Validate() error {
	for key, entry := range d.Entities {
		if key == "" {
			return &ValidationError{Field: "entities", Message: "empty entity key"}
		}
		if MeaningKey(entry.Term) != key {
			return &ValidationError{Field: "entities", Message: "key " + key + " does not match term " + entry.Term}
		}
	}
	for id, task := range d.Tasks {
		if task.ID != id {
			return &ValidationError{Field: "tasks", Message: "task keyed " + id + " carries id " + task.ID}
		}
		if !task.Status.Valid() {
			return &ValidationError{Field: "tasks", Message: "task " + id + " has invalid status " + string(task.Status)}
		}
		for _, step := range task.Steps {
			if !step.Status.Valid() {
				return &ValidationError{Field: "tasks", Message: "task " + id + " step has invalid status " + string(step.Status)}
			}
		}
		for _, source := range task.Sources {
			if !source.Type.Valid() {
				return &ValidationError{Field: "tasks", Message: "task " + id + " source has invalid type " + string(source.Type)}
			}
		}
		for _, dep := range task.Dependencies {
			if !dep.Type.Valid() {
				return &ValidationError{Field: "tasks", Message: "task " + id + " dependency has invalid type " + string(dep.Type)}
			}
			if _, ok := d.Tasks[dep.From]; !ok {
				return &ValidationError{Field: "tasks", Message: "task " + id + " depends on unknown task " + dep.From}
			}
		}
	}
	if !d.Confirmation.Status.Valid() {
		return &ValidationError{Field: "confirmation", Message: "invalid status " + string(d.Confirmation.Status)}
	}
	if d.Confirmation.Response != "" && d.Confirmation.Status != ConfirmationConfirmed {
		return &ValidationError{Field: "confirmation", Message: "response present while status is " + string(d.Confirmation.Status)}
	}
	for _, item := range d.History {
		if !item.Role.Valid() {
			return &ValidationError{Field: "history", Message: "invalid role " + string(item.Role)}
		}
	}
	return d.ValidateGraph()
}

// Normalize repairs bookkeeping a wire peer may not carry: nil maps become
// empty and EntityOrder is rebuilt (oldest entry first) when it disagrees
// with the entity map.
func (d *Document) Normalize() {
	if d.Entities == nil {
		d.Entities = make(map[string]MeaningEntry)
	}
	if d.Tasks == nil {
		d.Tasks = make(map[string]TaskNode)
	}
	if d.History == nil {
		d.History = make([]HistoryItem, 0)
	}
	if d.Confirmation.Status == "" {
		d.Confirmation = NewConfirmation()
	}
	if !d.entityOrderConsistent() {
		keys := make([]string, 0, len(d.Entities))
		for key := range d.Entities {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := d.Entities[keys[i]], d.Entities[keys[j]]
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return keys[i] < keys[j]
		})
		d.EntityOrder = keys
	}
}

func (d *Document) entityOrderConsistent() bool {
	if len(d.EntityOrder) != len(d.Entities) {
		return false
	}
	seen := make(map[string]bool, len(d.EntityOrder))
	for _, key := range d.EntityOrder {
		if seen[key] {
			return false
		}
		if _, ok := d.Entities[key]; !ok {
			return false
		}
		seen[key] = true
	}
	return true
}
