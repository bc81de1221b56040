package domain

import (
	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskBlocked    TaskStatus = "blocked"
	TaskSkipped    TaskStatus = "skipped"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskBlocked, TaskSkipped:
		return true
	}
	return false
}

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
)

func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepInProgress, StepCompleted, StepSkipped:
		return true
	}
	return false
}

type DependencyType string

const (
	DependencyRequired DependencyType = "required"
	DependencyOptional DependencyType = "optional"
	DependencySoft     DependencyType = "soft"
)

func (t DependencyType) Valid() bool {
	switch t {
	case DependencyRequired, DependencyOptional, DependencySoft:
		return true
	}
	return false
}

type SourceType string

const (
	SourceDocumentation SourceType = "documentation"
	SourceFile          SourceType = "file"
	SourceURL           SourceType = "url"
	SourceMeaningIndex  SourceType = "meaning_index"
	SourceExternal      SourceType = "external"
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceDocumentation, SourceFile, SourceURL, SourceMeaningIndex, SourceExternal:
		return true
	}
	return false
}

// Step is a sub-unit of work inside a task.
type Step struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Output      string     `json:"output,omitempty"`
}

// Source cites where a task's requirement or result came from.
type Source struct {
	ID          string     `json:"id"`
	Type        SourceType `json:"type"`
	Reference   string     `json:"reference"`
	Description string     `json:"description,omitempty"`
}

// Dependency is a directed edge from a prerequisite task to a dependent one.
// A task's Dependencies list holds the incoming edges, so To normally equals
// the owning task's id.
type Dependency struct {
	From string         `json:"from"`
	To   string         `json:"to"`
	Type DependencyType `json:"type"`
}

type TaskNode struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	Steps        []Step       `json:"steps,omitempty"`
	Sources      []Source     `json:"sources,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// NewTaskNode builds a pending task with a fresh id.
func NewTaskNode(title, description string) TaskNode {
	return TaskNode{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      TaskPending,
	}
}

// NewStep builds a pending step with a fresh id.
func NewStep(description string) Step {
	return Step{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StepPending,
	}
}

// NewSource builds a citation with a fresh id.
func NewSource(sourceType SourceType, reference, description string) Source {
	return Source{
		ID:          uuid.New().String(),
		Type:        sourceType,
		Reference:   reference,
		Description: description,
	}
}

func (t TaskNode) clone() TaskNode {
	out := t
	if t.Steps != nil {
		out.Steps = append([]Step(nil), t.Steps...)
	}
	if t.Sources != nil {
		out.Sources = append([]Source(nil), t.Sources...)
	}
	if t.Dependencies != nil {
		out.Dependencies = append([]Dependency(nil), t.Dependencies...)
	}
	return out
}
