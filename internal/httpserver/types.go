package httpserver

import (
	"encoding/json"

	"github.com/bkeenke/shm-admin-2/internal/models"
)

// HeaderCacheState tells table clients how a page was served
const HeaderCacheState = "X-Cache-State"

// HeaderUpstreamAuthorization carries the admin API credentials when the
// Authorization header is taken by the cache's own bearer token
const HeaderUpstreamAuthorization = "X-Upstream-Authorization"

// cacheStateReload marks a page fetched because the client forced a refresh
const cacheStateReload = "reload"

// PolicyResponse returns the effective policy
type PolicyResponse struct {
	Success bool               `json:"success"`
	Policy  models.CachePolicy `json:"policy"`
}

// StatsResponse returns live cache statistics
type StatsResponse struct {
	Success bool              `json:"success"`
	Stats   models.CacheStats `json:"stats"`
}

// EntryResponse describes a single key lookup
type EntryResponse struct {
	Success bool              `json:"success"`
	Key     string            `json:"key"`
	Found   bool              `json:"found"`
	State   models.CacheState `json:"state"`
	Data    any               `json:"data,omitempty"`
}

// SetEntryRequest stores Data under the key in the path
type SetEntryRequest struct {
	Data json.RawMessage `json:"data"`
}

// SetEntryResponse reports whether the value was kept; a disabled cache drops writes
type SetEntryResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
	Stored  bool   `json:"stored"`
}

// ClearResponse reports how many entries were dropped
type ClearResponse struct {
	Success bool `json:"success"`
	Removed int  `json:"removed"`
}
