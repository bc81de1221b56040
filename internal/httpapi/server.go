// Package httpapi exposes the synchronization channel over HTTP: document
// snapshot reads, tool dispatch, full replacement, a broadcast-on-change SSE
// stream, and the meaning index export projection.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"intentd/internal/domain"
	"intentd/internal/export"
	"intentd/internal/state"
	"intentd/internal/tools"
)

type Server struct {
	store *state.Store
	log   *zap.Logger
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func New(store *state.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{store: store, log: log}
}

// Handler builds the chi router for the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Get("/document", s.handleGetDocument)
		r.Put("/document", s.handleReplaceDocument)
		r.Get("/document/stream", s.handleStream)
		r.Post("/tools/{name}", s.handleToolCall)
		r.Post("/confirmation/response", s.handleConfirmationResponse)
		r.Get("/meanings", s.handleListMeanings)
		r.Get("/meanings/export", s.handleExportMeanings)
	})
	return r
}

func (s *Server) handleGetDocument(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeError(w, &domain.ValidationError{Field: "document", Message: err.Error()})
		return
	}
	result, err := s.store.Dispatch(tools.ReplaceDocumentTool, map[string]any{"document": doc})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	args := make(map[string]any)
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			s.writeError(w, &domain.ValidationError{Field: "body", Message: err.Error()})
			return
		}
	}
	result, err := s.store.Dispatch(name, args)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// handleConfirmationResponse is the confirmation widget's path: unlike the
// agent's resolve tool it goes through the guarded respond transition.
func (s *Server) handleConfirmationResponse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, &domain.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	result, err := s.store.Dispatch("respond_clarification", map[string]any{"response": body.Response})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	// Prime the stream with the current document so a late subscriber is
	// immediately consistent.
	if err := writeEvent(w, s.store.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case doc, ok := <-snapshots:
			if !ok {
				return
			}
			if err := writeEvent(w, doc); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, doc *domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: document\ndata: %s\n\n", data)
	return err
}

func (s *Server) handleListMeanings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Snapshot().SearchMeanings(""))
}

func (s *Server) handleExportMeanings(w http.ResponseWriter, r *http.Request) {
	doc := s.store.Snapshot()
	switch format := r.URL.Query().Get("format"); format {
	case "csv":
		data, err := export.MeaningsCSV(doc)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="meanings.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case "", "json":
		data, err := export.MeaningsJSON(doc)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	default:
		s.writeError(w, &domain.ValidationError{Field: "format", Message: "must be json or csv"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Kind: "InternalError", Message: err.Error()}

	var validation *domain.ValidationError
	var unknown *domain.UnknownToolError
	var cycle *domain.CycleError
	var dep *domain.DependencyNotSatisfiedError
	var transition *domain.InvalidTransitionError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		body.Kind = "ValidationError"
		body.Details = map[string]any{"field": validation.Field}
	case errors.As(err, &unknown):
		status = http.StatusNotFound
		body.Kind = "UnknownToolError"
		body.Details = map[string]any{"name": unknown.Name}
	case errors.As(err, &cycle):
		status = http.StatusConflict
		body.Kind = "CycleError"
		body.Details = map[string]any{"cycle": cycle.Path}
	case errors.As(err, &dep):
		status = http.StatusConflict
		body.Kind = "DependencyNotSatisfiedError"
		body.Details = map[string]any{"taskId": dep.TaskID, "missing": dep.Missing}
	case errors.As(err, &transition):
		status = http.StatusConflict
		body.Kind = "InvalidTransitionError"
		body.Details = map[string]any{"from": transition.From}
	}

	s.writeJSON(w, status, errorEnvelope{Error: body})
}
