// Package service implements the event lifecycle engine, invite and access
// rules, and attendance verification on top of the store collaborators.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	domainerrors "github.com/eventsphere/eventsphere-server/internal/errors"
	"github.com/eventsphere/eventsphere-server/internal/id"
	"github.com/eventsphere/eventsphere-server/internal/logger"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// Store is the persistence the services need. sqlite.Store implements it.
type Store interface {
	store.UserStore
	store.EventStore
	store.ParticipantStore
}

// Clock returns the current time. Tests inject fixed clocks.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// base carries what every service shares.
type base struct {
	store   Store
	indexer store.SearchIndexer
	log     *logger.Logger
	now     Clock
}

func newBase(st Store, indexer store.SearchIndexer, l *slog.Logger) base {
	if indexer == nil {
		indexer = store.NewNoopSearchIndexer()
	}
	return base{store: st, indexer: indexer, log: logger.Wrap(l), now: systemClock}
}

// SetClock replaces the time source.
func (b *base) SetClock(now Clock) {
	if now == nil {
		now = systemClock
	}
	b.now = now
}

// getEvent loads an event, translating store.ErrNotFound.
func (b *base) getEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	e, err := b.store.GetEvent(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (b *base) getUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := b.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (b *base) getParticipant(ctx context.Context, participantID string) (*domain.Participant, error) {
	p, err := b.store.GetParticipant(ctx, participantID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("participant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// findParticipant returns the membership of userID in eventID, or nil.
func (b *base) findParticipant(ctx context.Context, eventID, userID string) (*domain.Participant, error) {
	if userID == "" {
		return nil, nil
	}
	p, err := b.store.GetParticipantByEventAndUser(ctx, eventID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// reindex refreshes the search document. Failures are logged only.
func (b *base) reindex(ctx context.Context, e *domain.Event) {
	if err := b.indexer.IndexEvent(ctx, e); err != nil {
		b.log.WithEvent(e.ID).WithError(err).Warn("failed to index event")
	}
}

// checkPermission is the owner-or-collaborator rule behind every mutating operation.
func checkPermission(e *domain.Event, callerID string) error {
	if !e.CanManage(callerID) {
		return domainerrors.PermissionDenied("only the owner or a collaborator can manage this event")
	}
	return nil
}

// newMembership builds a participant row and the history entry recording its
// initial status.
func newMembership(eventID, userID string, status domain.ParticipantStatus, collaborator bool, now time.Time) (store.NewParticipant, error) {
	participantID, err := id.Generate(id.PrefixParticipant)
	if err != nil {
		return store.NewParticipant{}, fmt.Errorf("generate participant id: %w", err)
	}
	entry, err := newHistoryEntry(participantID, status, now)
	if err != nil {
		return store.NewParticipant{}, err
	}

	p := &domain.Participant{
		Syncable:       domain.Syncable{ID: participantID},
		EventID:        eventID,
		UserID:         userID,
		Status:         status,
		IsCollaborator: collaborator,
	}
	p.InitTimestamps(now)
	return store.NewParticipant{Participant: p, History: entry}, nil
}

func newHistoryEntry(participantID string, status domain.ParticipantStatus, now time.Time) (*domain.HistoryEntry, error) {
	historyID, err := id.Generate(id.PrefixHistory)
	if err != nil {
		return nil, fmt.Errorf("generate history id: %w", err)
	}
	return &domain.HistoryEntry{ID: historyID, ParticipantID: participantID, Status: status, At: now}, nil
}
