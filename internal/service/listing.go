package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

// Pagination limits shared by every listing.
const (
	DefaultListLimit    = 20
	MaxListLimit        = 100
	DefaultRankingLimit = 10
)

// Page is the limit/offset pair a listing request asks for.
type Page struct {
	Limit  int
	Offset int
}

// options clamps the page: missing or non-positive limit becomes def, and
// nothing larger than MaxListLimit is ever passed down.
func (p Page) options(def int) repository.ListOptions {
	limit := p.Limit
	if limit <= 0 {
		limit = def
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// sortKeys maps the names clients send to repository columns.
type sortKeys map[string]string

func (k sortKeys) names() string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// parseSignedSort reads the "-field" form: a leading minus means descending.
// An empty value selects def (ascending).
func parseSignedSort(raw, def string, keys sortKeys) (repository.Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = def
	}
	desc := strings.HasPrefix(raw, "-")
	column, ok := keys[strings.TrimPrefix(raw, "-")]
	if !ok {
		return repository.Sort{}, apperror.ValidationFailed("sort",
			fmt.Sprintf("unknown sort %q; allowed: %s (prefix with - for descending)", raw, keys.names()))
	}
	return repository.Sort{Column: column, Desc: desc}, nil
}

// parseFieldSort reads the sortBy + order form.
func parseFieldSort(sortBy, order, defField string, defDesc bool, keys sortKeys) (repository.Sort, error) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" {
		sortBy = defField
	}
	column, ok := keys[sortBy]
	if !ok {
		return repository.Sort{}, apperror.ValidationFailed("sortBy",
			fmt.Sprintf("unknown sortBy %q; allowed: %s", sortBy, keys.names()))
	}

	desc := defDesc
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return repository.Sort{}, apperror.ValidationFailed("order", "order must be asc or desc")
	}
	return repository.Sort{Column: column, Desc: desc}, nil
}
