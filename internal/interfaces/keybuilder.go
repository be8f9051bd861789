package interfaces

import (
	"net/url"

	"github.com/bkeenke/shm-admin-2/internal/models"
)

// KeyBuilder canonizes table queries into deterministic cache keys
type KeyBuilder interface {
	Build(entity string, query models.TableQuery) (string, error)
	// FromValues parses request query parameters into a TableQuery
	FromValues(values url.Values) (models.TableQuery, error)
}
