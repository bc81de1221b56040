// Package rpc is the stdio synchronization channel: JSON-RPC 2.0 requests in
// (tool invocations, document replacement), full-document snapshot
// notifications out. The channel treats the remote agent as an opaque peer;
// everything it sends funnels into the dispatch table.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"intentd/internal/domain"
	"intentd/internal/state"
	"intentd/internal/tools"
)

// Standard JSON-RPC error codes, plus one application code for domain
// rejections (cycle, unsatisfied dependency, invalid transition).
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
	ToolFailure    = -32000
)

type Server struct {
	store *state.Store
}

func NewServer(store *state.Store) *Server {
	return &Server{store: store}
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type replaceParams struct {
	Document json.RawMessage `json:"document"`
}

// HandleCommand routes one decoded request. Unrecognized methods fall
// through to direct tool dispatch, so peers may call tools by name without
// the tools/call envelope.
func (s *Server) HandleCommand(method string, params json.RawMessage) (any, error) {
	switch method {
	case "tools/list":
		return s.listTools(), nil
	case "tools/call":
		var p toolCallParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &domain.ValidationError{Field: "params", Message: err.Error()}
		}
		if p.Name == "" {
			return nil, &domain.ValidationError{Field: "name", Message: "required argument missing"}
		}
		return s.store.Dispatch(p.Name, p.Arguments)
	case "document/get":
		return s.store.Snapshot(), nil
	case "document/replace":
		var p replaceParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &domain.ValidationError{Field: "params", Message: err.Error()}
		}
		var doc map[string]any
		if err := json.Unmarshal(p.Document, &doc); err != nil {
			return nil, &domain.ValidationError{Field: "document", Message: err.Error()}
		}
		return s.store.Dispatch(tools.ReplaceDocumentTool, map[string]any{"document": doc})
	default:
		var args map[string]any
		if len(params) > 0 {
			if err := json.Unmarshal(params, &args); err != nil {
				return nil, &domain.ValidationError{Field: "params", Message: err.Error()}
			}
		}
		return s.store.Dispatch(method, args)
	}
}

func (s *Server) listTools() map[string]any {
	registered := s.store.Registry().List()
	list := make([]map[string]any, 0, len(registered))
	for _, t := range registered {
		list = append(list, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema(),
		})
	}
	return map[string]any{"tools": list}
}

// ErrorFor maps a dispatch failure onto a JSON-RPC error. Domain rejections
// carry their taxonomy name and contextual ids in the data field so the peer
// can render an actionable message.
func ErrorFor(err error) *JSONRPCError {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return &JSONRPCError{
			Code:    InvalidParams,
			Message: validation.Error(),
			Data:    map[string]any{"kind": "ValidationError", "field": validation.Field},
		}
	}
	var unknown *domain.UnknownToolError
	if errors.As(err, &unknown) {
		return &JSONRPCError{
			Code:    MethodNotFound,
			Message: unknown.Error(),
			Data:    map[string]any{"kind": "UnknownToolError", "name": unknown.Name},
		}
	}
	var cycle *domain.CycleError
	if errors.As(err, &cycle) {
		return &JSONRPCError{
			Code:    ToolFailure,
			Message: cycle.Error(),
			Data:    map[string]any{"kind": "CycleError", "cycle": cycle.Path},
		}
	}
	var dep *domain.DependencyNotSatisfiedError
	if errors.As(err, &dep) {
		return &JSONRPCError{
			Code:    ToolFailure,
			Message: dep.Error(),
			Data: map[string]any{
				"kind":    "DependencyNotSatisfiedError",
				"taskId":  dep.TaskID,
				"missing": dep.Missing,
			},
		}
	}
	var transition *domain.InvalidTransitionError
	if errors.As(err, &transition) {
		return &JSONRPCError{
			Code:    ToolFailure,
			Message: transition.Error(),
			Data:    map[string]any{"kind": "InvalidTransitionError", "from": transition.From},
		}
	}
	return &JSONRPCError{
		Code:    InternalError,
		Message: fmt.Sprintf("internal error: %v", err),
	}
}
