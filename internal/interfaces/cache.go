package interfaces

import (
	"github.com/bkeenke/shm-admin-2/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Cache is the contract table consumers and the settings panel use to reach the cache engine
type Cache interface {
	Get(key string) (any, models.CacheState)
	Set(key string, value any) bool
	Invalidate(key string)
	Clear() int
	Configure(patch models.PolicyPatch) models.CachePolicy
	Policy() models.CachePolicy
	Stats() models.CacheStats
}
