package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/bkeenke/shm-admin-2/internal/cache"
	"github.com/bkeenke/shm-admin-2/internal/models"
	"github.com/bkeenke/shm-admin-2/internal/upstream"
)

// handleTable serves one page of an entity through the cache. refresh=1 skips
// the cache lookup and replaces the entry with a fresh fetch.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	entity := mux.Vars(r)["entity"]

	query, err := s.deps.KeyBuilder.FromValues(r.URL.Query())
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid query: %v", err), http.StatusBadRequest)
		return
	}
	key, err := s.deps.KeyBuilder.Build(entity, query)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid query: %v", err), http.StatusBadRequest)
		return
	}

	authHeader := s.upstreamAuthorization(r)
	fetch := func(ctx context.Context) (any, error) {
		return s.deps.Fetcher.Fetch(ctx, entity, query, authHeader)
	}

	var (
		value any
		state string
	)
	if forceRefresh(r) {
		value, err = s.deps.Loader.Reload(r.Context(), key, fetch)
		state = cacheStateReload
	} else {
		var cacheState models.CacheState
		value, cacheState, err = s.deps.Loader.Load(r.Context(), key, fetch)
		state = string(cacheState)
	}
	if err != nil {
		s.logger.Warn("Failed to load table page", zap.String("key", key), zap.Error(err))
		s.writeErrorResponse(w, err.Error(), upstreamStatus(err))
		return
	}

	w.Header().Set(HeaderCacheState, state)
	s.writeResponse(w, value)
}

// upstreamAuthorization picks the credentials forwarded to the admin API.
// With bearer auth enabled the Authorization header belongs to this service.
func (s *Server) upstreamAuthorization(r *http.Request) string {
	if header := r.Header.Get(HeaderUpstreamAuthorization); header != "" {
		return header
	}
	if s.deps.Issuer == nil {
		return r.Header.Get("Authorization")
	}
	return ""
}

func forceRefresh(r *http.Request) bool {
	raw := r.URL.Query().Get(cache.ParamRefresh)
	if raw == "" {
		return false
	}
	refresh, err := strconv.ParseBool(raw)
	return err == nil && refresh
}

// upstreamStatus passes client errors from the admin API through and maps the rest to 502
func upstreamStatus(err error) int {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return statusErr.StatusCode
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
