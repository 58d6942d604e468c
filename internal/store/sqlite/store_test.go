package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestUser(t *testing.T, s *Store, id string) *domain.User {
	t.Helper()
	u := &domain.User{
		Syncable:    domain.Syncable{ID: id, CreatedAt: testNow, UpdatedAt: testNow},
		Username:    id,
		Email:       id + "@example.com",
		DisplayName: "User " + id,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
	return u
}

func newParticipant(id, eventID, userID string, status domain.ParticipantStatus) store.NewParticipant {
	return store.NewParticipant{
		Participant: &domain.Participant{
			Syncable: domain.Syncable{ID: id, CreatedAt: testNow, UpdatedAt: testNow},
			EventID:  eventID,
			UserID:   userID,
			Status:   status,
		},
		History: &domain.HistoryEntry{ID: "his-" + id, ParticipantID: id, Status: status, At: testNow},
	}
}

// insertTestEvent creates a PUBLIC CREATED event owned by ownerID, together
// with the owner's CONFIRMED participant "ptc-owner-<eventID>".
func insertTestEvent(t *testing.T, s *Store, id, ownerID string) *domain.Event {
	t.Helper()
	e := &domain.Event{
		Syncable:   domain.Syncable{ID: id, CreatedAt: testNow, UpdatedAt: testNow},
		OwnerID:    ownerID,
		Name:       "Event " + id,
		FixedStart: testNow.Add(24 * time.Hour),
		FixedEnd:   testNow.Add(26 * time.Hour),
		Access:     domain.AccessPublic,
		State:      domain.EventCreated,
	}
	owner := newParticipant("ptc-owner-"+id, id, ownerID, domain.StatusConfirmed)
	if err := s.CreateEvent(context.Background(), e, owner); err != nil {
		t.Fatalf("CreateEvent(%s): %v", id, err)
	}
	return e
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	for _, table := range []string{"users", "events", "participants", "participant_history"} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	insertTestUser(t, s1, "usr-1")
	s1.Close()

	s2, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	if _, err := s2.GetUser(context.Background(), "usr-1"); err != nil {
		t.Errorf("user lost across reopen: %v", err)
	}
}
