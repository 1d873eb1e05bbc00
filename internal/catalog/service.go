package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Clark-Hu/media-catalog/internal/domain"
	"github.com/Clark-Hu/media-catalog/internal/repository"
)

// EntryStore is the persistence contract the service depends on.
type EntryStore interface {
	Create(ctx context.Context, params repository.EntryCreateParams) (domain.Entry, error)
	GetByID(ctx context.Context, id int64) (domain.Entry, error)
	Update(ctx context.Context, id int64, params repository.EntryUpdateParams) (domain.Entry, error)
	SetStatus(ctx context.Context, id int64, status domain.Status, now time.Time) (domain.Entry, error)
	SoftDelete(ctx context.Context, id int64, now time.Time) (domain.Entry, error)
	List(ctx context.Context, q repository.EntryQuery) ([]domain.Entry, error)
}

// Clock supplies timestamps for writes.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

const DefaultStoreTimeout = 5 * time.Second

// Options tunes a Service. Zero values select defaults.
type Options struct {
	Timeout time.Duration
	Clock   Clock
}

// Service owns the entry lifecycle: creation, edits, moderation, soft
// deletion and visibility-scoped reads.
type Service struct {
	store    EntryStore
	clock    Clock
	timeout  time.Duration
	validate *validator.Validate
}

// New builds a Service on top of store.
func New(store EntryStore, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStoreTimeout
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	return &Service{
		store:    store,
		clock:    opts.Clock,
		timeout:  opts.Timeout,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// EntryInput is the payload for creating an entry.
type EntryInput struct {
	Title       string  `validate:"required,max=300"`
	Type        string  `validate:"max=32"`
	Director    *string `validate:"omitempty,max=200"`
	Budget      *string `validate:"omitempty,max=100"`
	Location    *string `validate:"omitempty,max=200"`
	Duration    *string `validate:"omitempty,max=100"`
	YearTime    *string `validate:"omitempty,max=100"`
	Description *string `validate:"omitempty,max=5000"`
	PosterURL   *string `validate:"omitempty,http_url,max=2048"`
	ThumbURL    *string `validate:"omitempty,http_url,max=2048"`
}

// EntryPatch is a partial update. A nil field keeps the stored value; an
// empty string clears an optional field.
type EntryPatch struct {
	Title       *string `validate:"omitempty,max=300"`
	Type        *string `validate:"omitempty,max=32"`
	Director    *string `validate:"omitempty,max=200"`
	Budget      *string `validate:"omitempty,max=100"`
	Location    *string `validate:"omitempty,max=200"`
	Duration    *string `validate:"omitempty,max=100"`
	YearTime    *string `validate:"omitempty,max=100"`
	Description *string `validate:"omitempty,max=5000"`
	PosterURL   *string `validate:"omitempty,http_url,max=2048"`
	ThumbURL    *string `validate:"omitempty,http_url,max=2048"`
}

// ParseEntryType accepts the write-side spellings of the two entry types.
func ParseEntryType(raw string) (domain.EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie":
		return domain.TypeMovie, nil
	case "tv", "tv show", "tv_show", "tvshow", "tv-show":
		return domain.TypeTVShow, nil
	}
	return "", invalidArgument("unknown entry type %q", raw)
}

// Create stores a new PENDING entry owned by identity.
func (s *Service) Create(ctx context.Context, identity *domain.Identity, in EntryInput) (domain.Entry, error) {
	if identity == nil {
		return domain.Entry{}, ErrUnauthenticated
	}

	in.Title = strings.TrimSpace(in.Title)
	if err := s.check(in); err != nil {
		return domain.Entry{}, err
	}
	entryType := domain.TypeMovie
	if strings.TrimSpace(in.Type) != "" {
		t, err := ParseEntryType(in.Type)
		if err != nil {
			return domain.Entry{}, err
		}
		entryType = t
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.store.Create(ctx, repository.EntryCreateParams{
		EntryContent: repository.EntryContent{
			Title:       in.Title,
			Type:        entryType,
			Director:    optional(in.Director),
			Budget:      optional(in.Budget),
			Location:    optional(in.Location),
			Duration:    optional(in.Duration),
			YearTime:    optional(in.YearTime),
			Description: optional(in.Description),
			PosterURL:   optional(in.PosterURL),
			ThumbURL:    optional(in.ThumbURL),
		},
		CreatedByID: identity.UserID,
		Status:      domain.StatusPending,
		Now:         s.clock.Now(),
	})
	if err != nil {
		return domain.Entry{}, storeError("create entry", err)
	}
	return entry, nil
}

// Get returns an entry if identity may view it.
func (s *Service) Get(ctx context.Context, identity *domain.Identity, id int64) (domain.Entry, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return domain.Entry{}, err
	}
	if !CanView(entry, identity) {
		if identity == nil {
			return domain.Entry{}, ErrUnauthenticated
		}
		return domain.Entry{}, ErrForbidden
	}
	return entry, nil
}

// Update merges patch over the stored entry. Edits by anyone other than an
// admin send the entry back to PENDING.
func (s *Service) Update(ctx context.Context, identity *domain.Identity, id int64, patch EntryPatch) (domain.Entry, error) {
	if identity == nil {
		return domain.Entry{}, ErrUnauthenticated
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Entry{}, invalidArgument("title cannot be blank")
		}
		patch.Title = &title
	}
	if err := s.check(patch); err != nil {
		return domain.Entry{}, err
	}
	var entryType *domain.EntryType
	if patch.Type != nil {
		t, err := ParseEntryType(*patch.Type)
		if err != nil {
			return domain.Entry{}, err
		}
		entryType = &t
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return domain.Entry{}, err
	}
	if !CanModify(identity, existing) {
		return domain.Entry{}, ErrForbidden
	}

	content := contentOf(existing)
	if patch.Title != nil {
		content.Title = *patch.Title
	}
	if entryType != nil {
		content.Type = *entryType
	}
	merge(&content.Director, patch.Director)
	merge(&content.Budget, patch.Budget)
	merge(&content.Location, patch.Location)
	merge(&content.Duration, patch.Duration)
	merge(&content.YearTime, patch.YearTime)
	merge(&content.Description, patch.Description)
	merge(&content.PosterURL, patch.PosterURL)
	merge(&content.ThumbURL, patch.ThumbURL)

	status := domain.StatusPending
	if identity.IsAdmin() {
		status = existing.Status
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	updated, err := s.store.Update(ctx, id, repository.EntryUpdateParams{
		EntryContent: content,
		Status:       status,
		Now:          s.clock.Now(),
	})
	if err != nil {
		return domain.Entry{}, storeError("update entry", err)
	}
	return updated, nil
}

// Delete soft-deletes an entry owned by identity, or any entry for an admin.
func (s *Service) Delete(ctx context.Context, identity *domain.Identity, id int64) (domain.Entry, error) {
	if identity == nil {
		return domain.Entry{}, ErrUnauthenticated
	}
	existing, err := s.load(ctx, id)
	if err != nil {
		return domain.Entry{}, err
	}
	if !CanModify(identity, existing) {
		return domain.Entry{}, ErrForbidden
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.store.SoftDelete(ctx, id, s.clock.Now())
	if err != nil {
		return domain.Entry{}, storeError("delete entry", err)
	}
	return deleted, nil
}

// Moderate records an admin decision. The admin role check belongs to the
// caller. Repeating a decision leaves the entry untouched.
func (s *Service) Moderate(ctx context.Context, id int64, decision string) (domain.Entry, error) {
	status := domain.Status(decision)
	if !status.Valid() || status == domain.StatusPending {
		return domain.Entry{}, invalidArgument("decision must be APPROVED or REJECTED")
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return domain.Entry{}, err
	}
	if existing.Status == status {
		return existing, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	moderated, err := s.store.SetStatus(ctx, id, status, s.clock.Now())
	if err != nil {
		return domain.Entry{}, storeError("moderate entry", err)
	}
	return moderated, nil
}

// List returns one page of entries visible under the requested scope.
func (s *Service) List(ctx context.Context, identity *domain.Identity, params ListParams) (Page, error) {
	q, size, err := BuildQuery(params, identity)
	if err != nil {
		return Page{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.store.List(ctx, q)
	if err != nil {
		return Page{}, storeError("list entries", err)
	}
	return paginate(rows, size), nil
}

func (s *Service) load(ctx context.Context, id int64) (domain.Entry, error) {
	if id <= 0 {
		return domain.Entry{}, &Error{Kind: KindNotFound, Message: "entry not found"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Entry{}, storeError("load entry", err)
	}
	return entry, nil
}

func (s *Service) check(payload any) error {
	err := s.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalidArgument("%s", fieldMessage(fe))
	}
	return invalidArgument("%v", err)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", field, fe.Param())
	case "http_url":
		return fmt.Sprintf("%s must be an absolute http(s) URL", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

func contentOf(e domain.Entry) repository.EntryContent {
	return repository.EntryContent{
		Title:       e.Title,
		Type:        e.Type,
		Director:    e.Director,
		Budget:      e.Budget,
		Location:    e.Location,
		Duration:    e.Duration,
		YearTime:    e.YearTime,
		Description: e.Description,
		PosterURL:   e.PosterURL,
		ThumbURL:    e.ThumbURL,
	}
}

// merge applies a patch value: nil keeps dst, blank clears it.
func merge(dst **string, patch *string) {
	if patch == nil {
		return
	}
	*dst = optional(patch)
}

func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
