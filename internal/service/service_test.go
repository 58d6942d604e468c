package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventsphere/eventsphere-server/internal/codegen"
	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/search"
	"github.com/eventsphere/eventsphere-server/internal/store/blob"
	"github.com/eventsphere/eventsphere-server/internal/store/sqlite"
)

// T0 is the reference instant of the fixtures. Events default to starting a
// day later.
var T0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// scriptedCodes hands out queued invite codes and check-in tokens before
// falling back to crypto/rand.
type scriptedCodes struct {
	mu          sync.Mutex
	inviteCodes []string
	tokens      []string
}

func (s *scriptedCodes) InviteToken() (string, error) { return codegen.Crypto{}.InviteToken() }

func (s *scriptedCodes) InviteCode() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inviteCodes) == 0 {
		return codegen.Crypto{}.InviteCode()
	}
	c := s.inviteCodes[0]
	s.inviteCodes = s.inviteCodes[1:]
	return c, nil
}

func (s *scriptedCodes) CheckInToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tokens) == 0 {
		return codegen.Crypto{}.CheckInToken()
	}
	t := s.tokens[0]
	s.tokens = s.tokens[1:]
	return t, nil
}

type fixture struct {
	store      *sqlite.Store
	blobs      *blob.Store
	index      *search.Index
	clock      *fakeClock
	codes      *scriptedCodes
	events     *EventService
	access     *AccessService
	attendance *AttendanceService
	search     *SearchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "eventsphere.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.OpenInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blobs.Close() })

	idx, err := search.Open(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	clock := &fakeClock{now: T0}
	codes := &scriptedCodes{}

	f := &fixture{
		store:      st,
		blobs:      blobs,
		index:      idx,
		clock:      clock,
		codes:      codes,
		events:     NewEventService(st, blobs, idx, nil, logger),
		access:     NewAccessService(st, idx, codes, logger),
		attendance: NewAttendanceService(st, codes, nil, logger),
		search:     NewSearchService(idx, logger),
	}
	f.events.SetClock(clock.Now)
	f.access.SetClock(clock.Now)
	f.attendance.SetClock(clock.Now)
	return f
}

// user creates an account with id "usr-<username>".
func (f *fixture) user(t *testing.T, username string) *domain.User {
	t.Helper()
	u := &domain.User{
		Syncable:    domain.Syncable{ID: "usr-" + username, CreatedAt: T0, UpdatedAt: T0},
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func registerInput(ownerID string, access domain.AccessMode) RegisterEventInput {
	return RegisterEventInput{
		OwnerID:      ownerID,
		Name:         "Community meetup",
		Localization: "Main hall",
		Description:  "Monthly gathering",
		FixedStart:   T0.Add(24 * time.Hour),
		FixedEnd:     T0.Add(26 * time.Hour),
		Access:       access,
	}
}

// event registers an event owned by ownerID starting a day after T0.
func (f *fixture) event(t *testing.T, ownerID string, access domain.AccessMode) *domain.Event {
	t.Helper()
	e, err := f.events.Register(context.Background(), registerInput(ownerID, access))
	require.NoError(t, err)
	return e
}

// activeEvent registers an event and starts it manually.
func (f *fixture) activeEvent(t *testing.T, ownerID string, access domain.AccessMode) *domain.Event {
	t.Helper()
	e := f.event(t, ownerID, access)
	e, err := f.events.Start(context.Background(), e.ID, ownerID)
	require.NoError(t, err)
	return e
}

func (f *fixture) participant(t *testing.T, eventID, userID string) *domain.Participant {
	t.Helper()
	p, err := f.store.GetParticipantByEventAndUser(context.Background(), eventID, userID)
	require.NoError(t, err)
	return p
}
