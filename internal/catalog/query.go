package catalog

import (
	"strconv"
	"strings"

	"github.com/Clark-Hu/media-catalog/internal/domain"
	"github.com/Clark-Hu/media-catalog/internal/repository"
)

const (
	DefaultPageSize = 15
	MaxPageSize     = 50
)

// ListParams carries the raw, untrusted list parameters.
type ListParams struct {
	Q        string
	Director string
	Type     string
	YearFrom string
	YearTo   string
	Sort     string
	Limit    string
	Cursor   string
	Mine     string
}

// Page is one slice of a listing. NextCursor is nil on the last page.
type Page struct {
	Items      []domain.Entry
	NextCursor *int64
}

// BuildQuery validates params and returns the store query together with the
// page size. The query's Limit is pageSize+1 so the caller can detect a
// following page.
func BuildQuery(params ListParams, identity *domain.Identity) (repository.EntryQuery, int, error) {
	var q repository.EntryQuery

	mine := false
	if raw := strings.TrimSpace(params.Mine); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return q, 0, invalidArgument("invalid mine value")
		}
		mine = parsed
	}
	if mine && identity != nil {
		owner := identity.UserID
		q.CreatedByID = &owner
	} else {
		approved := domain.StatusApproved
		q.Status = &approved
	}

	if v := strings.TrimSpace(params.Director); v != "" {
		q.Director = &v
	}
	if v := strings.TrimSpace(params.Type); v != "" {
		t := TypeFilter(v)
		q.Type = &t
	}
	if v := strings.TrimSpace(params.Q); v != "" {
		q.Text = &v
	}

	from, err := parseOptionalInt(params.YearFrom, "yearFrom")
	if err != nil {
		return q, 0, err
	}
	to, err := parseOptionalInt(params.YearTo, "yearTo")
	if err != nil {
		return q, 0, err
	}
	if from != nil && to != nil && *from > *to {
		return q, 0, invalidArgument("yearFrom cannot exceed yearTo")
	}
	q.YearFrom, q.YearTo = from, to

	q.Sort, q.Desc = ParseSort(params.Sort)

	size, err := PageSize(params.Limit)
	if err != nil {
		return q, 0, err
	}
	q.Limit = size + 1

	if raw := strings.TrimSpace(params.Cursor); raw != "" {
		cursor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor <= 0 {
			return q, 0, invalidArgument("invalid cursor")
		}
		q.AfterID = &cursor
	}

	return q, size, nil
}

// TypeFilter maps a list filter value onto an entry type. Anything starting
// with "tv" is a TV show; every other value is treated as a movie.
func TypeFilter(value string) domain.EntryType {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "tv") {
		return domain.TypeTVShow
	}
	return domain.TypeMovie
}

// ParseSort honours only the first comma-separated "field:direction" clause.
// Unknown fields fall back to createdAt descending; any direction other than
// "asc" is descending.
func ParseSort(raw string) (repository.SortField, bool) {
	clause, _, _ := strings.Cut(raw, ",")
	field, dir, _ := strings.Cut(strings.TrimSpace(clause), ":")

	var sort repository.SortField
	switch strings.TrimSpace(field) {
	case "title":
		sort = repository.SortTitle
	case "createdAt":
		sort = repository.SortCreatedAt
	case "year":
		sort = repository.SortYearTime
	default:
		return repository.SortCreatedAt, true
	}
	return sort, !strings.EqualFold(strings.TrimSpace(dir), "asc")
}

// PageSize returns min(limit, MaxPageSize), or DefaultPageSize when limit is
// absent or not positive.
func PageSize(limit string) (int, error) {
	raw := strings.TrimSpace(limit)
	if raw == "" {
		return DefaultPageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidArgument("invalid limit value")
	}
	switch {
	case n <= 0:
		return DefaultPageSize, nil
	case n > MaxPageSize:
		return MaxPageSize, nil
	}
	return n, nil
}

// paginate trims the lookahead row and derives the next cursor from the last
// row actually returned.
func paginate(rows []domain.Entry, size int) Page {
	if len(rows) <= size {
		return Page{Items: rows}
	}
	items := rows[:size]
	next := items[len(items)-1].ID
	return Page{Items: items, NextCursor: &next}
}

func parseOptionalInt(raw, name string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalidArgument("invalid %s value", name)
	}
	return &n, nil
}
