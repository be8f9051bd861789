package cache

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bkeenke/shm-admin-2/internal/interfaces"
	"github.com/bkeenke/shm-admin-2/internal/models"
)

// ParamRefresh forces a reload and never becomes part of a key
const ParamRefresh = "refresh"

// Ensure KeyBuilderImpl implements interfaces.KeyBuilder
var _ interfaces.KeyBuilder = (*KeyBuilderImpl)(nil)

// KeyBuilderImpl implements the KeyBuilder interface
type KeyBuilderImpl struct{}

// NewKeyBuilder creates a new KeyBuilder instance
func NewKeyBuilder() interfaces.KeyBuilder {
	return &KeyBuilderImpl{}
}

// Build creates the cache key for one table page: entity:canonical-query.
// Equal queries produce equal keys regardless of parameter order.
func (kb *KeyBuilderImpl) Build(entity string, query models.TableQuery) (string, error) {
	if entity == "" {
		return "", errors.New("entity cannot be empty")
	}
	if strings.Contains(entity, ":") {
		return "", fmt.Errorf("entity %q cannot contain ':'", entity)
	}
	if query.Limit < 0 {
		return "", errors.New("limit cannot be negative")
	}
	if query.Offset < 0 {
		return "", errors.New("offset cannot be negative")
	}

	return entity + ":" + query.Values().Encode(), nil
}

// FromValues parses request parameters into a TableQuery. Unknown parameters
// become filters; the refresh flag is dropped. A parameter given more than once
// is rejected since the key holds one value per name.
func (kb *KeyBuilderImpl) FromValues(values url.Values) (models.TableQuery, error) {
	query := models.TableQuery{Limit: models.DefaultPageLimit}

	for name, all := range values {
		if len(all) > 1 && name != ParamRefresh {
			return models.TableQuery{}, fmt.Errorf("parameter %q repeated", name)
		}
		value := values.Get(name)
		switch name {
		case models.ParamLimit:
			limit, err := parseNonNegative(name, value)
			if err != nil {
				return models.TableQuery{}, err
			}
			query.Limit = limit
		case models.ParamOffset:
			offset, err := parseNonNegative(name, value)
			if err != nil {
				return models.TableQuery{}, err
			}
			query.Offset = offset
		case models.ParamSortField:
			query.SortField = value
		case models.ParamSortDirection:
			direction := strings.ToLower(value)
			if direction != "" && direction != models.SortAsc && direction != models.SortDesc {
				return models.TableQuery{}, fmt.Errorf("invalid sort direction %q", value)
			}
			query.SortDirection = direction
		case ParamRefresh:
		default:
			if query.Filters == nil {
				query.Filters = make(map[string]string)
			}
			query.Filters[name] = value
		}
	}

	return query, nil
}

func parseNonNegative(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s cannot be negative", name)
	}
	return n, nil
}
