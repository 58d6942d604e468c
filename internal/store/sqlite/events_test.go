package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

func TestCreateEvent_WritesOwnerParticipant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")

	want := insertTestEvent(t, s, "evt-1", "usr-owner")

	got, err := s.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Name != want.Name || got.OwnerID != "usr-owner" || got.State != domain.EventCreated {
		t.Errorf("GetEvent: got %+v", got)
	}
	if !got.FixedStart.Equal(want.FixedStart) || !got.FixedEnd.Equal(want.FixedEnd) {
		t.Errorf("schedule: got %v-%v, want %v-%v", got.FixedStart, got.FixedEnd, want.FixedStart, want.FixedEnd)
	}
	if got.ActualStart != nil || got.InviteToken != "" {
		t.Errorf("optional fields should be empty: %+v", got)
	}

	owner, err := s.GetParticipantByEventAndUser(ctx, "evt-1", "usr-owner")
	if err != nil {
		t.Fatalf("owner participant: %v", err)
	}
	if owner.Status != domain.StatusConfirmed {
		t.Errorf("owner status: got %s", owner.Status)
	}

	history, err := s.ListHistory(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(history) != 1 || history[0].Status != domain.StatusConfirmed {
		t.Errorf("owner history: got %+v", history)
	}
}

func TestCreateEvent_RollsBackOnParticipantFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")

	e := &domain.Event{
		Syncable:   domain.Syncable{ID: "evt-1", CreatedAt: testNow, UpdatedAt: testNow},
		OwnerID:    "usr-owner",
		Name:       "Broken",
		FixedStart: testNow,
		FixedEnd:   testNow.Add(time.Hour),
		Access:     domain.AccessPublic,
		State:      domain.EventCreated,
	}
	// The owner participant references a user that does not exist.
	owner := newParticipant("ptc-1", "evt-1", "usr-ghost", domain.StatusConfirmed)

	if err := s.CreateEvent(ctx, e, owner); err == nil {
		t.Fatal("expected foreign key failure")
	}
	if _, err := s.GetEvent(ctx, "evt-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("event row must not survive a failed transaction, got %v", err)
	}
}

func TestTransitionEvent_CompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")
	e := insertTestEvent(t, s, "evt-1", "usr-owner")

	if err := e.Start(testNow); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.TransitionEvent(ctx, e, domain.EventCreated); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	// A second writer that also saw CREATED loses.
	if err := s.TransitionEvent(ctx, e, domain.EventCreated); !errors.Is(err, store.ErrStateChanged) {
		t.Errorf("expected ErrStateChanged, got %v", err)
	}

	got, err := s.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.State != domain.EventActive || got.ActualStart == nil || !got.ActualStart.Equal(testNow) {
		t.Errorf("after transition: state=%s actualStart=%v", got.State, got.ActualStart)
	}

	ghost := *e
	ghost.ID = "evt-missing"
	if err := s.TransitionEvent(ctx, &ghost, domain.EventCreated); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing event: expected ErrNotFound, got %v", err)
	}
}

func TestSetInviteMaterial_Memoized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")
	insertTestEvent(t, s, "evt-1", "usr-owner")

	tok, code, err := s.SetInviteMaterial(ctx, "evt-1", "tok-1", "AAAA1111", testNow)
	if err != nil {
		t.Fatalf("first mint: %v", err)
	}
	if tok != "tok-1" || code != "AAAA1111" {
		t.Errorf("first mint: got %s/%s", tok, code)
	}

	// A later mint keeps the stored pair.
	tok, code, err = s.SetInviteMaterial(ctx, "evt-1", "tok-2", "BBBB2222", testNow)
	if err != nil {
		t.Fatalf("second mint: %v", err)
	}
	if tok != "tok-1" || code != "AAAA1111" {
		t.Errorf("second mint should return the first pair, got %s/%s", tok, code)
	}

	byToken, err := s.GetEventByInviteToken(ctx, "tok-1")
	if err != nil || byToken.ID != "evt-1" {
		t.Errorf("GetEventByInviteToken: %v %v", byToken, err)
	}
	byCode, err := s.GetEventByInviteCode(ctx, "AAAA1111")
	if err != nil || byCode.ID != "evt-1" {
		t.Errorf("GetEventByInviteCode: %v %v", byCode, err)
	}
}

func TestSetInviteMaterial_CodeCollision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")
	insertTestEvent(t, s, "evt-1", "usr-owner")
	insertTestEvent(t, s, "evt-2", "usr-owner")

	if _, _, err := s.SetInviteMaterial(ctx, "evt-1", "tok-1", "SAMECODE", testNow); err != nil {
		t.Fatalf("mint evt-1: %v", err)
	}
	_, _, err := s.SetInviteMaterial(ctx, "evt-2", "tok-2", "SAMECODE", testNow)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	codes, err := s.ListInviteCodes(ctx)
	if err != nil {
		t.Fatalf("ListInviteCodes: %v", err)
	}
	if _, ok := codes["SAMECODE"]; !ok || len(codes) != 1 {
		t.Errorf("ListInviteCodes: got %v", codes)
	}
}

func TestUpdateEvent_OwnerChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")
	insertTestUser(t, s, "usr-new")
	e := insertTestEvent(t, s, "evt-1", "usr-owner")

	e.Name = "Renamed"
	e.OwnerID = "usr-new"
	newOwner := newParticipant("ptc-new", "evt-1", "usr-new", domain.StatusConfirmed)

	if err := s.UpdateEvent(ctx, e, &newOwner); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	got, err := s.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Name != "Renamed" || got.OwnerID != "usr-new" {
		t.Errorf("UpdateEvent: got name=%q owner=%q", got.Name, got.OwnerID)
	}
	if _, err := s.GetParticipant(ctx, "ptc-new"); err != nil {
		t.Errorf("new owner participant: %v", err)
	}
}

func TestListEvents_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-a")
	insertTestUser(t, s, "usr-b")

	insertTestEvent(t, s, "evt-a", "usr-a")
	b := insertTestEvent(t, s, "evt-b", "usr-b")
	priv := insertTestEvent(t, s, "evt-priv", "usr-b")

	priv.Access = domain.AccessPrivate
	if err := s.UpdateEvent(ctx, priv, nil); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if err := s.CreateParticipant(ctx, newParticipant("ptc-a-b", "evt-b", "usr-a", domain.StatusInvited), 0); err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
	if err := b.Cancel(testNow); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.TransitionEvent(ctx, b, domain.EventCreated); err != nil {
		t.Fatalf("TransitionEvent: %v", err)
	}

	all, err := s.ListEvents(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListEvents: %d events, %v", len(all), err)
	}

	mine, err := s.ListEventsForUser(ctx, "usr-a", domain.EventCreated, domain.EventActive)
	if err != nil {
		t.Fatalf("ListEventsForUser: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "evt-a" {
		t.Errorf("ListEventsForUser: got %v", eventIDs(mine))
	}

	joined, err := s.ListEventsForUser(ctx, "usr-a", domain.EventCanceled)
	if err != nil || len(joined) != 1 || joined[0].ID != "evt-b" {
		t.Errorf("participated canceled event: got %v, %v", eventIDs(joined), err)
	}

	public, err := s.ListPublicEvents(ctx, domain.EventCreated, domain.EventActive)
	if err != nil {
		t.Fatalf("ListPublicEvents: %v", err)
	}
	if len(public) != 1 || public[0].ID != "evt-a" {
		t.Errorf("ListPublicEvents: got %v", eventIDs(public))
	}
}

func TestCollaboratorIDsDerivedFromParticipants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")
	insertTestUser(t, s, "usr-c")
	insertTestEvent(t, s, "evt-1", "usr-owner")

	np := newParticipant("ptc-c", "evt-1", "usr-c", domain.StatusInvited)
	if err := s.CreateParticipant(ctx, np, 0); err != nil {
		t.Fatalf("CreateParticipant: %v", err)
	}
	if err := s.SetCollaborator(ctx, "ptc-c", true, testNow); err != nil {
		t.Fatalf("SetCollaborator: %v", err)
	}

	e, err := s.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if len(e.CollaboratorIDs) != 1 || e.CollaboratorIDs[0] != "usr-c" {
		t.Errorf("CollaboratorIDs: got %v", e.CollaboratorIDs)
	}
}

func TestDeleteEvent_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")
	insertTestEvent(t, s, "evt-1", "usr-owner")

	if err := s.DeleteEvent(ctx, "evt-1"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := s.GetParticipant(ctx, "ptc-owner-evt-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("participant should cascade, got %v", err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM participant_history`).Scan(&n); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if n != 0 {
		t.Errorf("history rows left: %d", n)
	}

	if err := s.DeleteEvent(ctx, "evt-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSetEventPhoto(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestUser(t, s, "usr-owner")
	insertTestEvent(t, s, "evt-1", "usr-owner")

	if err := s.SetEventPhoto(ctx, "evt-1", "blob-1", "LEHV6nWB2yk8", testNow); err != nil {
		t.Fatalf("SetEventPhoto: %v", err)
	}
	e, err := s.GetEvent(ctx, "evt-1")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if e.PhotoRef != "blob-1" || e.PhotoBlurHash != "LEHV6nWB2yk8" {
		t.Errorf("photo: got %q %q", e.PhotoRef, e.PhotoBlurHash)
	}
}

func eventIDs(events []*domain.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
