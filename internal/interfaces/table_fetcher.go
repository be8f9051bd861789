package interfaces

import (
	"context"

	"github.com/bkeenke/shm-admin-2/internal/models"
)

//go:generate mockgen -package=mock -source=table_fetcher.go -destination=mock/table_fetcher.go

// TableFetcher loads one page of an entity from the admin API
type TableFetcher interface {
	Fetch(ctx context.Context, entity string, query models.TableQuery, authHeader string) (any, error)
}
