package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"intentd/internal/domain"
	"intentd/internal/state"
)

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id,omitempty"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSONRPCNotification represents a JSON-RPC 2.0 notification.
type JSONRPCNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Transport runs line-delimited JSON-RPC 2.0 over a reader/writer pair
// (stdio in production). When echoSnapshots is set, every successful
// mutation pushes a document/snapshot notification to the peer.
type Transport struct {
	reader        *bufio.Reader
	writer        io.Writer
	writeMu       sync.Mutex
	server        *Server
	store         *state.Store
	log           *zap.Logger
	echoSnapshots bool
}

func NewTransport(server *Server, store *state.Store, r io.Reader, w io.Writer, log *zap.Logger, echoSnapshots bool) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{
		reader:        bufio.NewReader(r),
		writer:        w,
		server:        server,
		store:         store,
		log:           log,
		echoSnapshots: echoSnapshots,
	}
}

// Start runs the request loop until the peer disconnects or sends exit.
func (t *Transport) Start() error {
	var stopEcho func()
	if t.echoSnapshots {
		stopEcho = t.startSnapshotEcho()
		defer stopEcho()
	}

	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				t.log.Info("channel peer disconnected")
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		response, exit := t.processLine(line)
		if response != nil {
			if err := t.send(response); err != nil {
				return fmt.Errorf("send response: %w", err)
			}
		}
		if exit {
			return nil
		}
	}
}

// processLine handles one request line. The second return reports whether
// the peer asked the loop to terminate.
func (t *Transport) processLine(line []byte) (resp *JSONRPCResponse, exit bool) {
	defer func() {
		if r := recover(); r != nil {
			// A handler bug must not take the channel down; the published
			// document is still the last successfully applied one.
			t.log.Error("panic recovered", zap.Any("panic", r))
			resp = &JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &JSONRPCError{Code: InternalError, Message: "internal server error"},
			}
		}
	}()

	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &JSONRPCError{Code: ParseError, Message: "parse error", Data: err.Error()},
		}, false
	}
	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: InvalidRequest, Message: "JSON-RPC 2.0 required"},
		}, false
	}

	switch req.Method {
	case "initialize":
		return t.handleInitialize(req), false
	case "initialized":
		// Notification, no response.
		return nil, false
	case "shutdown":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}, false
	case "exit":
		t.log.Info("exit requested by peer")
		return nil, true
	}

	result, err := t.server.HandleCommand(req.Method, req.Params)
	if err != nil {
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: ErrorFor(err)}, false
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}, false
}

func (t *Transport) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	result := map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    "intentd",
			"version": "0.1.0",
		},
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (t *Transport) startSnapshotEcho() func() {
	snapshots, unsubscribe := t.store.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for doc := range snapshots {
			t.notifySnapshot(doc)
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}

func (t *Transport) notifySnapshot(doc *domain.Document) {
	note := JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  "document/snapshot",
		Params:  map[string]any{"document": doc},
	}
	if err := t.send(note); err != nil {
		t.log.Warn("snapshot notification failed", zap.Error(err))
	}
}

func (t *Transport) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.writer.Write(data); err != nil {
		return err
	}
	_, err = t.writer.Write([]byte("\n"))
	return err
}
