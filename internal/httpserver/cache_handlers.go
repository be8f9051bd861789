package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/models"
)

// handleGetPolicy returns the effective policy
func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, &PolicyResponse{
		Success: true,
		Policy:  s.deps.Cache.Policy(),
	})
}

// handlePatchPolicy merges the body into the policy. Out-of-range values are clamped.
func (s *Server) handlePatchPolicy(w http.ResponseWriter, r *http.Request) {
	var patch models.PolicyPatch
	if err := s.parseRequest(r, &patch); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if patch.IsEmpty() {
		s.writeErrorResponse(w, "No policy fields provided", http.StatusBadRequest)
		return
	}

	s.writeResponse(w, &PolicyResponse{
		Success: true,
		Policy:  s.deps.Cache.Configure(patch),
	})
}

// handleStats returns live statistics for the settings panel
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, &StatsResponse{
		Success: true,
		Stats:   s.deps.Cache.Stats(),
	})
}

// handleClear drops every entry
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	removed := s.deps.Cache.Clear()
	s.writeResponse(w, &ClearResponse{
		Success: true,
		Removed: removed,
	})
}

// handleGetEntry looks one key up. Reading an expired key evicts it.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	value, state := s.deps.Cache.Get(key)
	s.writeResponse(w, &EntryResponse{
		Success: true,
		Key:     key,
		Found:   state.Found(),
		State:   state,
		Data:    value,
	})
}

// handleSetEntry stores the request's data under key
func (s *Server) handleSetEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req SetEntryRequest
	if err := s.parseRequest(r, &req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Data) == 0 {
		s.writeErrorResponse(w, "Missing required field: data", http.StatusBadRequest)
		return
	}

	var value any
	if err := json.Unmarshal(req.Data, &value); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid data: %v", err), http.StatusBadRequest)
		return
	}

	stored := s.deps.Cache.Set(key, value)
	s.logger.Debug("Cache entry stored via API", zap.String("key", key), zap.Bool("stored", stored))

	s.writeResponse(w, &SetEntryResponse{
		Success: true,
		Key:     key,
		Stored:  stored,
	})
}

// handleInvalidateEntry removes one key
func (s *Server) handleInvalidateEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.deps.Cache.Invalidate(key)
	s.writeResponse(w, map[string]interface{}{
		"success": true,
		"key":     key,
	})
}
