package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// HistoryItem is one record of the interaction log. Items are immutable once
// appended; the log's iteration order is the canonical order of the session.
type HistoryItem struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ToolName  string    `json:"toolName,omitempty"`
}

// AppendHistory appends a record with a fresh id and the current timestamp.
func (d *Document) AppendHistory(role Role, content, toolName string) (HistoryItem, error) {
	if !role.Valid() {
		return HistoryItem{}, &ValidationError{Field: "role", Message: "must be one of user, assistant, tool"}
	}
	item := HistoryItem{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		ToolName:  toolName,
	}
	d.History = append(d.History, item)
	return item, nil
}
