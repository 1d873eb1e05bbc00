package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/media-catalog/internal/domain"
	"github.com/Clark-Hu/media-catalog/internal/testutil"
)

var (
	alice = &domain.Identity{UserID: 1, Role: domain.RoleUser}
	bob   = &domain.Identity{UserID: 2, Role: domain.RoleUser}
	admin = &domain.Identity{UserID: 99, Role: domain.RoleAdmin}
)

func newTestService(t *testing.T) (*Service, *memoryStore, *testutil.StubClock) {
	t.Helper()
	st := newMemoryStore()
	clock := testutil.FixedClock()
	return New(st, Options{Timeout: time.Second, Clock: tickClock{clock}}), st, clock
}

// tickClock advances one second per write so createdAt ordering is strict.
type tickClock struct{ c *testutil.StubClock }

func (t tickClock) Now() time.Time { return t.c.Tick() }

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	t.Run("requires identity", func(t *testing.T) {
		_, err := svc.Create(ctx, nil, EntryInput{Title: "X"})
		assert.True(t, errors.Is(err, ErrUnauthenticated))
	})

	t.Run("always pending and owned by caller", func(t *testing.T) {
		for _, who := range []*domain.Identity{alice, admin} {
			e, err := svc.Create(ctx, who, EntryInput{Title: "  Heat ", Type: "movie", YearTime: strPtr("1995")})
			require.NoError(t, err)
			assert.Equal(t, domain.StatusPending, e.Status)
			assert.False(t, e.Approved())
			assert.Equal(t, who.UserID, e.CreatedByID)
			assert.Equal(t, "Heat", e.Title)
			require.NotNil(t, e.Year)
			assert.Equal(t, 1995, *e.Year)
		}
	})

	t.Run("missing optional fields stored as null", func(t *testing.T) {
		e, err := svc.Create(ctx, alice, EntryInput{Title: "Bare", Director: strPtr("  ")})
		require.NoError(t, err)
		assert.Equal(t, domain.TypeMovie, e.Type)
		assert.Nil(t, e.Director)
		assert.Nil(t, e.PosterURL)
	})

	t.Run("tv spellings", func(t *testing.T) {
		for _, spelling := range []string{"TV Show", "tv", "TV_SHOW", "tv-show", "tvshow"} {
			e, err := svc.Create(ctx, alice, EntryInput{Title: "Show", Type: spelling})
			require.NoError(t, err, spelling)
			assert.Equal(t, domain.TypeTVShow, e.Type, spelling)
		}
	})

	t.Run("http and https image urls accepted", func(t *testing.T) {
		e, err := svc.Create(ctx, alice, EntryInput{
			Title:     "Heat",
			PosterURL: strPtr("https://cdn.example.org/posters/heat.jpg"),
			ThumbURL:  strPtr("http://localhost:9000/posters/heat-thumb.jpg"),
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.org/posters/heat.jpg", *e.PosterURL)
		assert.Equal(t, "http://localhost:9000/posters/heat-thumb.jpg", *e.ThumbURL)
	})

	t.Run("invalid payloads", func(t *testing.T) {
		tests := []struct {
			name string
			in   EntryInput
		}{
			{"blank title", EntryInput{Title: "   "}},
			{"unknown type", EntryInput{Title: "X", Type: "podcast"}},
			{"poster not a url", EntryInput{Title: "X", PosterURL: strPtr("not a url")}},
			{"poster javascript scheme", EntryInput{Title: "X", PosterURL: strPtr("javascript:alert(1)")}},
			{"poster file scheme", EntryInput{Title: "X", PosterURL: strPtr("file:///etc/passwd")}},
			{"thumb ftp scheme", EntryInput{Title: "X", ThumbURL: strPtr("ftp://x/y.png")}},
			{"thumb data uri", EntryInput{Title: "X", ThumbURL: strPtr("data:image/png;base64,AAAA")}},
			{"poster relative path", EntryInput{Title: "X", PosterURL: strPtr("/posters/a.png")}},
			{"title too long", EntryInput{Title: string(make([]byte, 301))}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Create(ctx, alice, tt.in)
				assert.Equal(t, KindInvalidArgument, KindOf(err))
			})
		}
	})
}

func TestGetVisibility(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	pending, err := svc.Create(ctx, alice, EntryInput{Title: "Draft"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, nil, pending.ID)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	_, err = svc.Get(ctx, bob, pending.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	got, err := svc.Get(ctx, alice, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)

	_, err = svc.Get(ctx, admin, pending.ID)
	require.NoError(t, err)

	_, err = svc.Moderate(ctx, pending.ID, "APPROVED")
	require.NoError(t, err)
	_, err = svc.Get(ctx, nil, pending.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, admin, 12345)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("owner edit resets approved entry to pending", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		e, err := svc.Create(ctx, alice, EntryInput{Title: "Alien", Director: strPtr("Scott")})
		require.NoError(t, err)
		_, err = svc.Moderate(ctx, e.ID, "APPROVED")
		require.NoError(t, err)

		updated, err := svc.Update(ctx, alice, e.ID, EntryPatch{})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, updated.Status)
		assert.False(t, updated.Approved())
		assert.Equal(t, "Alien", updated.Title)
		assert.Equal(t, "Scott", *updated.Director)
		assert.True(t, updated.UpdatedAt.After(e.UpdatedAt))
	})

	t.Run("owner edit resets rejected entry to pending", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		e, err := svc.Create(ctx, alice, EntryInput{Title: "Alien"})
		require.NoError(t, err)
		_, err = svc.Moderate(ctx, e.ID, "REJECTED")
		require.NoError(t, err)

		updated, err := svc.Update(ctx, alice, e.ID, EntryPatch{Title: strPtr("Aliens")})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, updated.Status)
		assert.Equal(t, "Aliens", updated.Title)
	})

	t.Run("admin edit keeps status", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		e, err := svc.Create(ctx, alice, EntryInput{Title: "Alien"})
		require.NoError(t, err)
		_, err = svc.Moderate(ctx, e.ID, "APPROVED")
		require.NoError(t, err)

		updated, err := svc.Update(ctx, admin, e.ID, EntryPatch{Location: strPtr("Nostromo")})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, updated.Status)
		assert.Equal(t, "Nostromo", *updated.Location)
		assert.Equal(t, alice.UserID, updated.CreatedByID)
	})

	t.Run("merge keeps absent fields and clears empty ones", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		e, err := svc.Create(ctx, alice, EntryInput{
			Title: "Alien", Director: strPtr("Scott"), Budget: strPtr("$11M"), YearTime: strPtr("1979"),
		})
		require.NoError(t, err)

		updated, err := svc.Update(ctx, alice, e.ID, EntryPatch{Budget: strPtr(""), YearTime: strPtr("May 1980"), Type: strPtr("tv")})
		require.NoError(t, err)
		assert.Equal(t, "Scott", *updated.Director)
		assert.Nil(t, updated.Budget)
		assert.Equal(t, 1980, *updated.Year)
		assert.Equal(t, domain.TypeTVShow, updated.Type)
	})

	t.Run("errors", func(t *testing.T) {
		svc, st, _ := newTestService(t)
		e, err := svc.Create(ctx, alice, EntryInput{Title: "Alien"})
		require.NoError(t, err)

		_, err = svc.Update(ctx, nil, e.ID, EntryPatch{})
		assert.True(t, errors.Is(err, ErrUnauthenticated))

		_, err = svc.Update(ctx, bob, e.ID, EntryPatch{Title: strPtr("Mine now")})
		assert.True(t, errors.Is(err, ErrForbidden))

		_, err = svc.Update(ctx, alice, 404, EntryPatch{})
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = svc.Update(ctx, alice, e.ID, EntryPatch{Title: strPtr(" ")})
		assert.True(t, errors.Is(err, ErrInvalidArgument))

		_, err = svc.Update(ctx, alice, e.ID, EntryPatch{Type: strPtr("opera")})
		assert.True(t, errors.Is(err, ErrInvalidArgument))

		_, err = svc.Update(ctx, alice, e.ID, EntryPatch{ThumbURL: strPtr("javascript:alert(1)")})
		assert.True(t, errors.Is(err, ErrInvalidArgument))

		assert.Equal(t, 0, st.calls["update"])
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	e, err := svc.Create(ctx, alice, EntryInput{Title: "Gone", Director: strPtr("Someone")})
	require.NoError(t, err)
	_, err = svc.Moderate(ctx, e.ID, "APPROVED")
	require.NoError(t, err)

	_, err = svc.Delete(ctx, nil, e.ID)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	_, err = svc.Delete(ctx, bob, e.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	deleted, err := svc.Delete(ctx, alice, e.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)
	assert.Equal(t, "Someone", *deleted.Director)
	assert.Equal(t, domain.StatusApproved, deleted.Status)

	_, err = svc.Get(ctx, admin, e.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.Delete(ctx, admin, e.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.Moderate(ctx, e.ID, "REJECTED")
	assert.True(t, errors.Is(err, ErrNotFound))

	page, err := svc.List(ctx, nil, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// The row survives for audit.
	assert.Contains(t, st.entries, e.ID)
}

func TestModerate(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	e, err := svc.Create(ctx, alice, EntryInput{Title: "Review me"})
	require.NoError(t, err)

	for _, bad := range []string{"", "approved", "PENDING", "DELETED"} {
		_, err := svc.Moderate(ctx, e.ID, bad)
		assert.True(t, errors.Is(err, ErrInvalidArgument), bad)
	}

	_, err = svc.Moderate(ctx, 777, "APPROVED")
	assert.True(t, errors.Is(err, ErrNotFound))

	first, err := svc.Moderate(ctx, e.ID, "APPROVED")
	require.NoError(t, err)
	assert.True(t, first.Approved())

	second, err := svc.Moderate(ctx, e.ID, "APPROVED")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, st.calls["setStatus"])

	rejected, err := svc.Moderate(ctx, e.ID, "REJECTED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	assert.False(t, rejected.Approved())
}

func TestStoreFailuresAreClassified(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	st.err = context.DeadlineExceeded
	_, err := svc.List(ctx, nil, ListParams{})
	assert.True(t, errors.Is(err, ErrTransient))

	st.err = fmt.Errorf("disk on fire")
	_, err = svc.Get(ctx, alice, 1)
	assert.True(t, errors.Is(err, ErrInternal))
}

func TestScenarioModerationGatesPublicListing(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	e, err := svc.Create(ctx, alice, EntryInput{Title: "X", Type: "TV Show"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, e.Status)

	page, err := svc.List(ctx, nil, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	mine, err := svc.List(ctx, alice, ListParams{Mine: "true"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)

	_, err = svc.Moderate(ctx, e.ID, "APPROVED")
	require.NoError(t, err)

	page, err = svc.List(ctx, nil, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, e.ID, page.Items[0].ID)
	assert.Equal(t, domain.TypeTVShow, page.Items[0].Type)
}

func TestScenarioCursorWalk(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	var ids []int64
	for i := 0; i < 5; i++ {
		e, err := svc.Create(ctx, alice, EntryInput{Title: fmt.Sprintf("Entry %d", i)})
		require.NoError(t, err)
		_, err = svc.Moderate(ctx, e.ID, "APPROVED")
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	params := ListParams{Limit: "2", Sort: "createdAt:desc"}
	first, err := svc.List(ctx, nil, params)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, []int64{ids[4], ids[3]}, idsOf(first.Items))

	params.Cursor = fmt.Sprint(*first.NextCursor)
	second, err := svc.List(ctx, nil, params)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.NotNil(t, second.NextCursor)
	assert.Equal(t, []int64{ids[2], ids[1]}, idsOf(second.Items))

	params.Cursor = fmt.Sprint(*second.NextCursor)
	third, err := svc.List(ctx, nil, params)
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	assert.Nil(t, third.NextCursor)
	assert.Equal(t, []int64{ids[0]}, idsOf(third.Items))
}

func TestListUnknownCursorReturnsEmptyPage(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	e, err := svc.Create(ctx, alice, EntryInput{Title: "Only"})
	require.NoError(t, err)
	_, err = svc.Moderate(ctx, e.ID, "APPROVED")
	require.NoError(t, err)

	page, err := svc.List(ctx, nil, ListParams{Cursor: "9999"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func idsOf(entries []domain.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
