package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventsphere/eventsphere-server/internal/domain"
)

var baseStart = time.Date(2026, 7, 1, 18, 0, 0, 0, time.UTC)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(Options{Path: filepath.Join(t.TempDir(), "search.bleve")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testEvent(id, name, loc string, access domain.AccessMode, state domain.EventState, offset time.Duration) *domain.Event {
	return &domain.Event{
		Syncable:     domain.Syncable{ID: id},
		Name:         name,
		Localization: loc,
		Access:       access,
		State:        state,
		FixedStart:   baseStart.Add(offset),
		FixedEnd:     baseStart.Add(offset + 2*time.Hour),
	}
}

func hitIDs(r *Result) []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.bleve")
	ctx := context.Background()

	idx, err := Open(Options{Path: path})
	require.NoError(t, err)
	assert.True(t, idx.Created())
	require.NoError(t, idx.IndexEvent(ctx, testEvent("evt-1", "Jazz Night", "", domain.AccessPublic, domain.EventCreated, 0)))
	require.NoError(t, idx.Close())

	idx, err = Open(Options{Path: path})
	require.NoError(t, err)
	defer idx.Close()
	assert.False(t, idx.Created())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearch_FoldsAccents(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexEvent(ctx, testEvent("evt-1", "Café Concert", "Montréal", domain.AccessPublic, domain.EventCreated, 0)))

	for _, q := range []string{"cafe", "CAFÉ", "montreal"} {
		res, err := idx.Search(ctx, PublicUpcoming(q, 10))
		require.NoError(t, err, q)
		assert.Equal(t, []string{"evt-1"}, hitIDs(res), q)
	}

	res, err := idx.Search(ctx, PublicUpcoming("cafe", 10))
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Café Concert", res.Hits[0].Name)
	assert.Equal(t, "Montréal", res.Hits[0].Localization)
	assert.Equal(t, domain.EventCreated, res.Hits[0].State)
	assert.True(t, baseStart.Equal(res.Hits[0].FixedStart))
}

func TestSearch_PublicUpcomingFilters(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexEvents(ctx, []*domain.Event{
		testEvent("evt-open", "Board games", "", domain.AccessPublic, domain.EventCreated, 0),
		testEvent("evt-live", "Board games live", "", domain.AccessPublic, domain.EventActive, -time.Hour),
		testEvent("evt-private", "Board games club", "", domain.AccessPrivate, domain.EventCreated, 0),
		testEvent("evt-done", "Board games finale", "", domain.AccessPublic, domain.EventFinished, -48*time.Hour),
		testEvent("evt-off", "Board games canceled", "", domain.AccessPublic, domain.EventCanceled, 0),
	}))

	res, err := idx.Search(ctx, PublicUpcoming("board", 10))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"evt-open", "evt-live"}, hitIDs(res))
}

func TestSearch_EmptyQueryOrdersByStart(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexEvents(ctx, []*domain.Event{
		testEvent("evt-late", "Late", "", domain.AccessPublic, domain.EventCreated, 48*time.Hour),
		testEvent("evt-early", "Early", "", domain.AccessPublic, domain.EventCreated, time.Hour),
		testEvent("evt-mid", "Mid", "", domain.AccessPublic, domain.EventCreated, 24*time.Hour),
	}))

	res, err := idx.Search(ctx, PublicUpcoming("", 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-early", "evt-mid", "evt-late"}, hitIDs(res))
	assert.Equal(t, uint64(3), res.Total)
}

func TestSearch_ReindexReflectsState(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	e := testEvent("evt-1", "Picnic", "", domain.AccessPublic, domain.EventCreated, 0)
	require.NoError(t, idx.IndexEvent(ctx, e))

	e.State = domain.EventCanceled
	require.NoError(t, idx.IndexEvent(ctx, e))

	res, err := idx.Search(ctx, PublicUpcoming("picnic", 10))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count, "reindexing replaces the document")
}

func TestDeleteEvent(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexEvent(ctx, testEvent("evt-1", "Hike", "", domain.AccessPublic, domain.EventCreated, 0)))
	require.NoError(t, idx.DeleteEvent(ctx, "evt-1"))

	res, err := idx.Search(ctx, PublicUpcoming("hike", 10))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSearch_Limit(t *testing.T) {
	idx, err := Open(Options{})
	require.NoError(t, err)
	defer idx.Close()
	ctx := context.Background()

	var events []*domain.Event
	for i := range 30 {
		events = append(events, testEvent("evt-"+string(rune('a'+i)), "Meetup", "", domain.AccessPublic, domain.EventCreated, time.Duration(i)*time.Hour))
	}
	require.NoError(t, idx.IndexEvents(ctx, events))

	res, err := idx.Search(ctx, PublicUpcoming("meetup", 0))
	require.NoError(t, err)
	assert.Len(t, res.Hits, DefaultLimit)
	assert.Equal(t, uint64(30), res.Total)
}

func TestRebuild(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexEvent(ctx, testEvent("evt-1", "Hike", "", domain.AccessPublic, domain.EventCreated, 0)))
	require.NoError(t, idx.Rebuild())

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
