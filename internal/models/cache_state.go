package models

// CacheState is the outcome of an engine lookup
type CacheState string

const (
	CacheStateHit                 CacheState = "hit"
	CacheStateHitStaleRefreshable CacheState = "hit_stale_refreshable"
	CacheStateMiss                CacheState = "miss"
	CacheStateExpired             CacheState = "expired"
	CacheStateDisabled            CacheState = "disabled"
)

// Found reports whether the lookup returned a value
func (s CacheState) Found() bool {
	return s == CacheStateHit || s == CacheStateHitStaleRefreshable
}

// NeedsRefresh reports whether the caller should revalidate in the background
func (s CacheState) NeedsRefresh() bool {
	return s == CacheStateHitStaleRefreshable
}
