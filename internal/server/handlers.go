package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/flatnode/flatnode/pkg/errors"
	"github.com/flatnode/flatnode/pkg/graphio"
	"github.com/flatnode/flatnode/pkg/inlined"
	"github.com/flatnode/flatnode/pkg/pipeline"
	"github.com/flatnode/flatnode/pkg/store"
	"github.com/flatnode/flatnode/pkg/treedef"
	"github.com/flatnode/flatnode/pkg/vtree"
)

// createGraphRequest is the POST /v1/graphs body.
type createGraphRequest struct {
	Source     string   `json:"source"`
	SourceName string   `json:"source_name"`
	Root       string   `json:"root,omitempty"`
	Formats    []string `json:"formats,omitempty"`
	Detailed   bool     `json:"detailed,omitempty"`
}

// createGraphResponse is the POST /v1/graphs reply.
type createGraphResponse struct {
	ID        string `json:"id"`
	Root      string `json:"root"`
	GraphHash string `json:"graph_hash"`
	NodeCount int    `json:"node_count"`
	LinkCount int    `json:"link_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req createGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "invalid request body: %v", err)
		return
	}

	if req.Root != "" {
		if err := apperrors.ValidateTreeName(req.Root); err != nil {
			s.writeError(w, http.StatusBadRequest, apperrors.GetCode(err), "%v", apperrors.UserMessage(err))
			return
		}
	}

	for _, f := range req.Formats {
		if err := apperrors.ValidateFormat(f); err != nil {
			s.writeError(w, http.StatusBadRequest, apperrors.GetCode(err), "%v", apperrors.UserMessage(err))
			return
		}
	}

	formats := req.Formats
	if len(formats) == 0 {
		formats = []string{pipeline.FormatDOT}
	}

	result, err := s.runner.Execute(r.Context(), pipeline.Options{
		Source:     req.Source,
		SourceName: req.SourceName,
		Root:       req.Root,
		Formats:    formats,
		Detailed:   req.Detailed,
	})
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	snapshot, err := graphio.Unmarshal(result.Snapshot)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "decode snapshot: %v", err)
		return
	}

	rec := &store.Record{
		Root:       result.Root,
		GraphHash:  result.GraphHash,
		Source:     req.Source,
		SourceName: req.SourceName,
		Snapshot:   snapshot,
		Artifacts:  result.Artifacts,
	}
	if err := s.store.Put(r.Context(), rec); err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "store graph: %v", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, createGraphResponse{
		ID:        rec.ID,
		Root:      rec.Root,
		GraphHash: rec.GraphHash,
		NodeCount: result.Stats.NodeCount,
		LinkCount: result.Stats.LinkCount,
	})
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "list graphs: %v", err)
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"graphs": summaries})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, apperrors.ErrCodeGraphNotFound, "graph %s not found", id)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "delete graph: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// artifactContentTypes maps formats to response content types.
var artifactContentTypes = map[string]string{
	"dot":  "text/vnd.graphviz",
	"svg":  "image/svg+xml",
	"json": "application/json",
}

func (s *Server) handleArtifact(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.lookup(w, r)
		if !ok {
			return
		}

		if format == "json" {
			// The snapshot is always available.
			s.writeJSON(w, http.StatusOK, rec.Snapshot)
			return
		}

		data, ok := rec.Artifacts[format]
		if !ok {
			s.writeError(w, http.StatusNotFound, apperrors.ErrCodeNotFound,
				"no %s artifact for graph %s; request the format when creating the graph", format, rec.ID)
			return
		}
		w.Header().Set("Content-Type", artifactContentTypes[format])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// lookup fetches the record named by the id route parameter, writing
// the error response on failure.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, apperrors.ErrCodeGraphNotFound, "graph %s not found", id)
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInternal, "get graph: %v", err)
		return nil, false
	}
	return rec, true
}

// writePipelineError maps pipeline failures to API error responses.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inlined.ErrGroupCycle):
		s.writeError(w, http.StatusUnprocessableEntity, apperrors.ErrCodeGroupCycle, "%v", apperrors.UserMessage(err))
	case errors.Is(err, inlined.ErrInterfaceMismatch),
		errors.Is(err, inlined.ErrInterfaceOutsideGroup),
		errors.Is(err, inlined.ErrUnresolvedSocket),
		errors.Is(err, inlined.ErrLinkConflict):
		s.writeError(w, http.StatusUnprocessableEntity, apperrors.ErrCodeUnresolvedLink, "%v", apperrors.UserMessage(err))
	case errors.Is(err, vtree.ErrUnknownTree):
		s.writeError(w, http.StatusUnprocessableEntity, apperrors.ErrCodeTreeNotFound, "%v", apperrors.UserMessage(err))
	case errors.Is(err, treedef.ErrEmptyBundle),
		errors.Is(err, treedef.ErrDuplicateTree),
		errors.Is(err, treedef.ErrUnknownRoot),
		errors.Is(err, treedef.ErrUnknownFormat):
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidBundle, "%v", apperrors.UserMessage(err))
	default:
		// Validation failures from options and parsers.
		s.writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "%v", apperrors.UserMessage(err))
	}
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, code apperrors.Code, format string, args ...any) {
	err := apperrors.New(code, format, args...)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "err", err.Message)
	}
	s.writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: err.Message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}
