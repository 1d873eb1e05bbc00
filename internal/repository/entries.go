package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/media-catalog/internal/domain"
)

// EntriesRepository provides persistence helpers for catalog entries.
type EntriesRepository struct {
	pool *pgxpool.Pool
}

const entryColumns = `
    id,
    title,
    type,
    director,
    budget,
    location,
    duration,
    year_time,
    year,
    description,
    poster_url,
    thumb_url,
    created_by_id,
    status,
    created_at,
    updated_at,
    deleted_at
`

// EntryContent is the user-editable part of an entry.
type EntryContent struct {
	Title       string
	Type        domain.EntryType
	Director    *string
	Budget      *string
	Location    *string
	Duration    *string
	YearTime    *string
	Description *string
	PosterURL   *string
	ThumbURL    *string
}

// EntryCreateParams bundles the fields required to insert an entry.
type EntryCreateParams struct {
	EntryContent
	CreatedByID int64
	Status      domain.Status
	Now         time.Time
}

// EntryUpdateParams replaces the content and status of an existing entry.
type EntryUpdateParams struct {
	EntryContent
	Status domain.Status
	Now    time.Time
}

// SortField names an orderable column.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortTitle     SortField = "title"
	SortYearTime  SortField = "year"
)

// sortExpr returns the SQL expression for the field on the given table alias.
// Nullable columns are coalesced so keyset comparisons stay total.
func (f SortField) sortExpr(alias string) string {
	switch f {
	case SortTitle:
		return alias + ".title"
	case SortYearTime:
		return "COALESCE(" + alias + ".year_time, '')"
	default:
		return alias + ".created_at"
	}
}

// EntryQuery is a fully validated list query. Soft-deleted rows are always excluded.
type EntryQuery struct {
	CreatedByID *int64
	Status      *domain.Status
	Director    *string
	Type        *domain.EntryType
	Text        *string
	YearFrom    *int
	YearTo      *int
	Sort        SortField
	Desc        bool
	AfterID     *int64
	Limit       int
}

// Create inserts a new entry row and returns the stored entity.
func (r *EntriesRepository) Create(ctx context.Context, params EntryCreateParams) (domain.Entry, error) {
	query := fmt.Sprintf(`
        INSERT INTO entries (title, type, director, budget, location, duration, year_time, year,
                             description, poster_url, thumb_url, created_by_id, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)
        RETURNING %s
    `, entryColumns)

	c := params.EntryContent
	row := r.pool.QueryRow(ctx, query,
		c.Title, c.Type, c.Director, c.Budget, c.Location, c.Duration, c.YearTime, domain.ExtractYear(c.YearTime),
		c.Description, c.PosterURL, c.ThumbURL, params.CreatedByID, params.Status, params.Now)
	return scanEntry(row)
}

// GetByID fetches a live (not soft-deleted) entry by its identifier.
func (r *EntriesRepository) GetByID(ctx context.Context, id int64) (domain.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM entries WHERE id = $1 AND deleted_at IS NULL`, entryColumns)
	return notFoundOnNoRows(scanEntry(r.pool.QueryRow(ctx, query, id)))
}

// Update overwrites content and status of a live entry and bumps updated_at.
func (r *EntriesRepository) Update(ctx context.Context, id int64, params EntryUpdateParams) (domain.Entry, error) {
	query := fmt.Sprintf(`
        UPDATE entries
        SET title = $2,
            type = $3,
            director = $4,
            budget = $5,
            location = $6,
            duration = $7,
            year_time = $8,
            year = $9,
            description = $10,
            poster_url = $11,
            thumb_url = $12,
            status = $13,
            updated_at = $14
        WHERE id = $1 AND deleted_at IS NULL
        RETURNING %s
    `, entryColumns)

	c := params.EntryContent
	row := r.pool.QueryRow(ctx, query, id,
		c.Title, c.Type, c.Director, c.Budget, c.Location, c.Duration, c.YearTime, domain.ExtractYear(c.YearTime),
		c.Description, c.PosterURL, c.ThumbURL, params.Status, params.Now)
	return notFoundOnNoRows(scanEntry(row))
}

// SetStatus changes the moderation state of a live entry.
func (r *EntriesRepository) SetStatus(ctx context.Context, id int64, status domain.Status, now time.Time) (domain.Entry, error) {
	query := fmt.Sprintf(`
        UPDATE entries
        SET status = $2, updated_at = $3
        WHERE id = $1 AND deleted_at IS NULL
        RETURNING %s
    `, entryColumns)
	return notFoundOnNoRows(scanEntry(r.pool.QueryRow(ctx, query, id, status, now)))
}

// SoftDelete stamps deleted_at and leaves every other column intact.
func (r *EntriesRepository) SoftDelete(ctx context.Context, id int64, now time.Time) (domain.Entry, error) {
	query := fmt.Sprintf(`
        UPDATE entries
        SET deleted_at = $2, updated_at = $2
        WHERE id = $1 AND deleted_at IS NULL
        RETURNING %s
    `, entryColumns)
	return notFoundOnNoRows(scanEntry(r.pool.QueryRow(ctx, query, id, now)))
}

// List returns up to q.Limit entries matching q in the requested order.
// AfterID seeks strictly past that row's position in the same ordering.
func (r *EntriesRepository) List(ctx context.Context, q EntryQuery) ([]domain.Entry, error) {
	if q.Limit <= 0 {
		return nil, fmt.Errorf("list entries: limit must be positive")
	}

	where := []string{"e.deleted_at IS NULL"}
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.CreatedByID != nil {
		where = append(where, fmt.Sprintf("e.created_by_id = %s", arg(*q.CreatedByID)))
	}
	if q.Status != nil {
		where = append(where, fmt.Sprintf("e.status = %s", arg(*q.Status)))
	}
	if q.Director != nil {
		where = append(where, fmt.Sprintf("e.director ILIKE %s", arg(containsPattern(*q.Director))))
	}
	if q.Type != nil {
		where = append(where, fmt.Sprintf("e.type = %s", arg(*q.Type)))
	}
	if q.Text != nil {
		p := arg(containsPattern(*q.Text))
		where = append(where, fmt.Sprintf("(e.title ILIKE %s OR e.director ILIKE %s OR e.description ILIKE %s)", p, p, p))
	}
	if q.YearFrom != nil || q.YearTo != nil {
		where = append(where, "e.year IS NOT NULL")
	}
	if q.YearFrom != nil {
		where = append(where, fmt.Sprintf("e.year >= %s", arg(*q.YearFrom)))
	}
	if q.YearTo != nil {
		where = append(where, fmt.Sprintf("e.year <= %s", arg(*q.YearTo)))
	}

	dir, cmp := "ASC", ">"
	if q.Desc {
		dir, cmp = "DESC", "<"
	}
	if q.AfterID != nil {
		where = append(where, fmt.Sprintf("(%s, e.id) %s (SELECT %s, c.id FROM entries c WHERE c.id = %s)",
			q.Sort.sortExpr("e"), cmp, q.Sort.sortExpr("c"), arg(*q.AfterID)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(prefixColumns("e"))
	sb.WriteString(" FROM entries e WHERE ")
	sb.WriteString(strings.Join(where, " AND "))
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s, e.id %s", q.Sort.sortExpr("e"), dir, dir))
	sb.WriteString(fmt.Sprintf(" LIMIT %d", q.Limit))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Entry, 0, q.Limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var (
		entry     domain.Entry
		entryType string
		status    string
	)

	err := row.Scan(
		&entry.ID,
		&entry.Title,
		&entryType,
		&entry.Director,
		&entry.Budget,
		&entry.Location,
		&entry.Duration,
		&entry.YearTime,
		&entry.Year,
		&entry.Description,
		&entry.PosterURL,
		&entry.ThumbURL,
		&entry.CreatedByID,
		&status,
		&entry.CreatedAt,
		&entry.UpdatedAt,
		&entry.DeletedAt,
	)
	if err != nil {
		return domain.Entry{}, err
	}

	entry.Type = domain.EntryType(entryType)
	entry.Status = domain.Status(status)
	return entry, nil
}

func notFoundOnNoRows(entry domain.Entry, err error) (domain.Entry, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Entry{}, ErrNotFound
	}
	return entry, err
}

func prefixColumns(alias string) string {
	cols := strings.Split(strings.TrimSpace(entryColumns), ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching value as a literal substring.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}
