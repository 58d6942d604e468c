// Package store defines the persistence collaborators of the event engine.
package store

import (
	"context"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
)

// NewParticipant is a participant row together with the history entry that
// records its initial status. Both are written in one transaction.
type NewParticipant struct {
	Participant *domain.Participant
	History     *domain.HistoryEntry
}

// UserStore reads accounts. Account management itself lives elsewhere.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
}

// EventStore persists events. Returned events carry CollaboratorIDs.
type EventStore interface {
	// CreateEvent writes the event and its owner participant atomically.
	CreateEvent(ctx context.Context, event *domain.Event, owner NewParticipant) error
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	GetEventByInviteToken(ctx context.Context, token string) (*domain.Event, error)
	GetEventByInviteCode(ctx context.Context, code string) (*domain.Event, error)
	ListEvents(ctx context.Context) ([]*domain.Event, error)
	// ListEventsForUser returns events owned by or joined by userID in any of states.
	ListEventsForUser(ctx context.Context, userID string, states ...domain.EventState) ([]*domain.Event, error)
	ListPublicEvents(ctx context.Context, states ...domain.EventState) ([]*domain.Event, error)
	// ListInviteCodes returns every invite code currently assigned.
	ListInviteCodes(ctx context.Context) (map[string]struct{}, error)

	// UpdateEvent rewrites the editable fields and owner. When newOwner is
	// non-nil its participant row is inserted in the same transaction.
	UpdateEvent(ctx context.Context, event *domain.Event, newOwner *NewParticipant) error
	// TransitionEvent persists state and actual timestamps only if the stored
	// state still equals from. Otherwise it returns ErrStateChanged.
	TransitionEvent(ctx context.Context, event *domain.Event, from domain.EventState) error
	// SetInviteMaterial stores token and code unless the event already has a
	// pair, and returns whichever pair is stored afterwards.
	SetInviteMaterial(ctx context.Context, eventID, token, code string, now time.Time) (string, string, error)
	SetEventPhoto(ctx context.Context, eventID, ref, blurHash string, now time.Time) error
	DeleteEvent(ctx context.Context, id string) error
}

// ParticipantStore persists participants and their status history.
type ParticipantStore interface {
	// CreateParticipant inserts the participant and its first history entry.
	// maxParticipants > 0 is enforced inside the transaction with ErrFull.
	CreateParticipant(ctx context.Context, np NewParticipant, maxParticipants int) error
	GetParticipant(ctx context.Context, id string) (*domain.Participant, error)
	GetParticipantByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Participant, error)
	ListParticipants(ctx context.Context, eventID string) ([]*domain.Participant, error)
	SetCollaborator(ctx context.Context, participantID string, isCollaborator bool, now time.Time) error
	// UpdateStatus sets the cached status and appends entry atomically.
	UpdateStatus(ctx context.Context, participantID string, entry *domain.HistoryEntry) error
	SetCheckInCode(ctx context.Context, participantID, code string, now time.Time) error
	// RecordCheckIn marks the participant PRESENT only if it is not already
	// present and its stored code equals code. Otherwise ErrStateChanged.
	RecordCheckIn(ctx context.Context, participantID, code string, entry *domain.HistoryEntry) error
	DeleteParticipant(ctx context.Context, id string) error
	ListHistory(ctx context.Context, participantID string) ([]*domain.HistoryEntry, error)
}

// BlobStore keeps binary payloads such as event photos.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, string, error)
	Delete(ctx context.Context, ref string) error
}

// SearchIndexer keeps the search index in step with event writes.
type SearchIndexer interface {
	IndexEvent(ctx context.Context, event *domain.Event) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// NoopSearchIndexer is used when search is disabled and in tests.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexEvent(context.Context, *domain.Event) error { return nil }
func (NoopSearchIndexer) DeleteEvent(context.Context, string) error       { return nil }

// NewNoopSearchIndexer creates a no-op search indexer.
func NewNoopSearchIndexer() SearchIndexer { return NoopSearchIndexer{} }
