package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eventsphere/eventsphere-server/internal/codegen"
	"github.com/eventsphere/eventsphere-server/internal/domain"
	domainerrors "github.com/eventsphere/eventsphere-server/internal/errors"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// maxInviteMintAttempts bounds retries when a freshly drawn invite code
// collides with one committed concurrently.
const maxInviteMintAttempts = 3

// Invite is the invite material of an event.
type Invite struct {
	EventID string `json:"event_id"`
	Token   string `json:"token"`
	Code    string `json:"code"`
}

// AccessService issues invites and gates who may join an event and with
// which rights.
type AccessService struct {
	base
	codes codegen.Source
}

// NewAccessService creates an access service. A nil source uses crypto/rand.
func NewAccessService(st Store, indexer store.SearchIndexer, codes codegen.Source, logger *slog.Logger) *AccessService {
	if codes == nil {
		codes = codegen.Crypto{}
	}
	return &AccessService{base: newBase(st, indexer, logger), codes: codes}
}

// GenerateInvite returns the event's invite token and code, minting them on
// first request. Later requests return the same pair.
func (s *AccessService) GenerateInvite(ctx context.Context, eventID, callerID string) (*Invite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkPermission(e, callerID); err != nil {
		return nil, err
	}
	if e.HasInvite() {
		return &Invite{EventID: e.ID, Token: e.InviteToken, Code: e.InviteCode}, nil
	}

	l := s.log.WithEvent(e.ID)
	for attempt := 1; attempt <= maxInviteMintAttempts; attempt++ {
		used, err := s.store.ListInviteCodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list invite codes: %w", err)
		}
		token, err := s.codes.InviteToken()
		if err != nil {
			return nil, fmt.Errorf("generate invite token: %w", err)
		}
		code, err := codegen.UniqueInviteCode(s.codes, used)
		if errors.Is(err, codegen.ErrCodeSpaceExhausted) {
			l.Error("invite code space exhausted", "used_codes", len(used))
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "could not allocate an invite code")
		}
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}

		token, code, err = s.store.SetInviteMaterial(ctx, e.ID, token, code, s.now())
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			l.Debug("invite code collided, retrying", "attempt", attempt)
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("event not found")
		case err != nil:
			return nil, fmt.Errorf("set invite material: %w", err)
		}

		l.Info("invite minted", "caller_id", callerID)
		return &Invite{EventID: e.ID, Token: token, Code: code}, nil
	}
	return nil, domainerrors.Internal("could not allocate an invite code")
}

// ValidateInviteToken resolves an invite token. Only CANCELED events reject
// their token; whether the event still takes participants is checked on join.
func (s *AccessService) ValidateInviteToken(ctx context.Context, token string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, domainerrors.InvalidArgument("invite token is required")
	}

	e, err := s.store.GetEventByInviteToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("invite not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get event by invite token: %w", err)
	}
	if e.State == domain.EventCanceled {
		return nil, domainerrors.InvalidState("event has been canceled")
	}
	return e, nil
}

// ValidateEventCode resolves a human-entered invite code. The format is
// checked before any lookup. Surrounding spaces are ignored and letters are
// upper-cased first.
func (s *AccessService) ValidateEventCode(ctx context.Context, code string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if !codegen.ValidInviteCode(code) {
		return nil, domainerrors.InvalidArgumentf("event code must be %d letters or digits", codegen.InviteCodeLength)
	}

	e, err := s.store.GetEventByInviteCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("no event uses this code")
	}
	if err != nil {
		return nil, fmt.Errorf("get event by invite code: %w", err)
	}
	switch e.State {
	case domain.EventCanceled:
		return nil, domainerrors.InvalidState("event has been canceled")
	case domain.EventFinished:
		return nil, domainerrors.InvalidState("event has finished")
	}
	return e, nil
}

// JoinPublic adds userID to a PUBLIC event as INVITED.
func (s *AccessService) JoinPublic(ctx context.Context, eventID, userID string) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Access != domain.AccessPublic {
		return nil, domainerrors.InvalidArgument("event is not public")
	}
	return s.join(ctx, e, userID, "public")
}

// JoinWithInvite adds userID to the event when token is its invite token.
// It is the way into PRIVATE events.
func (s *AccessService) JoinWithInvite(ctx context.Context, eventID, token, userID string) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.InviteToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(e.InviteToken)) != 1 {
		return nil, domainerrors.PermissionDenied("invalid invite token")
	}
	return s.join(ctx, e, userID, "invite")
}

// JoinWithCode adds userID to the event identified by an invite code.
func (s *AccessService) JoinWithCode(ctx context.Context, code, userID string) (*domain.Participant, error) {
	e, err := s.ValidateEventCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, e, userID, "code")
}

// join applies the shared guards and writes an INVITED participant.
func (s *AccessService) join(ctx context.Context, e *domain.Event, userID, via string) (*domain.Participant, error) {
	if err := e.AcceptsParticipants(); err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	np, err := newMembership(e.ID, userID, domain.StatusInvited, false, s.now())
	if err != nil {
		return nil, err
	}

	err = s.store.CreateParticipant(ctx, np, e.MaxParticipants)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return nil, domainerrors.AlreadyExists("user is already a participant")
	case errors.Is(err, store.ErrFull):
		return nil, domainerrors.InvalidState("event is full")
	case err != nil:
		return nil, fmt.Errorf("create participant: %w", err)
	}

	s.log.WithParticipant(e.ID, np.Participant.ID).Info("participant joined", "user_id", userID, "via", via)
	return np.Participant, nil
}

// AddCollaborator grants userID collaborator rights, creating their
// participant record if needed. Capacity does not apply to collaborators.
func (s *AccessService) AddCollaborator(ctx context.Context, eventID, userID, requesterID string) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkPermission(e, requesterID); err != nil {
		return nil, err
	}
	if err := e.Editable(); err != nil {
		return nil, err
	}
	if e.IsOwner(userID) {
		return nil, domainerrors.InvalidArgument("the owner cannot be a collaborator")
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	p, err := s.findParticipant(ctx, e.ID, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if p == nil {
		np, err := newMembership(e.ID, userID, domain.StatusInvited, true, now)
		if err != nil {
			return nil, err
		}
		err = s.store.CreateParticipant(ctx, np, 0)
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("user joined concurrently, retry")
		}
		if err != nil {
			return nil, fmt.Errorf("create participant: %w", err)
		}
		p = np.Participant
	} else {
		if p.IsCollaborator {
			return nil, domainerrors.AlreadyExists("user is already a collaborator")
		}
		if err := s.setCollaborator(ctx, p, true); err != nil {
			return nil, err
		}
	}

	s.log.WithParticipant(e.ID, p.ID).Info("collaborator added", "user_id", userID, "requester_id", requesterID)
	return p, nil
}

// PromoteToCollaborator flags an existing participant as collaborator.
// Only the owner may promote.
func (s *AccessService) PromoteToCollaborator(ctx context.Context, eventID, userID, requesterID string) (*domain.Participant, error) {
	e, p, err := s.ownerRosterTarget(ctx, eventID, userID, requesterID)
	if err != nil {
		return nil, err
	}
	if e.IsOwner(userID) {
		return nil, domainerrors.InvalidArgument("the owner cannot be a collaborator")
	}
	if p.IsCollaborator {
		return nil, domainerrors.AlreadyExists("user is already a collaborator")
	}
	if err := s.setCollaborator(ctx, p, true); err != nil {
		return nil, err
	}
	s.log.WithParticipant(e.ID, p.ID).Info("participant promoted to collaborator", "user_id", userID)
	return p, nil
}

// DemoteCollaborator clears a participant's collaborator flag. Only the
// owner may demote.
func (s *AccessService) DemoteCollaborator(ctx context.Context, eventID, userID, requesterID string) (*domain.Participant, error) {
	e, p, err := s.ownerRosterTarget(ctx, eventID, userID, requesterID)
	if err != nil {
		return nil, err
	}
	if e.IsOwner(userID) {
		return nil, domainerrors.InvalidArgument("the owner cannot be demoted")
	}
	if !p.IsCollaborator {
		return nil, domainerrors.InvalidArgument("user is not a collaborator")
	}
	if err := s.setCollaborator(ctx, p, false); err != nil {
		return nil, err
	}
	s.log.WithParticipant(e.ID, p.ID).Info("collaborator demoted", "user_id", userID)
	return p, nil
}

// ownerRosterTarget loads the event and target participant for an
// owner-only roster change.
func (s *AccessService) ownerRosterTarget(ctx context.Context, eventID, userID, requesterID string) (*domain.Event, *domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if !e.IsOwner(requesterID) {
		return nil, nil, domainerrors.PermissionDenied("only the owner can change collaborators")
	}
	if err := e.RosterMutable(); err != nil {
		return nil, nil, err
	}
	p, err := s.findParticipant(ctx, e.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, domainerrors.NotFound("user is not a participant")
	}
	return e, p, nil
}

func (s *AccessService) setCollaborator(ctx context.Context, p *domain.Participant, on bool) error {
	now := s.now()
	err := s.store.SetCollaborator(ctx, p.ID, on, now)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("participant not found")
	}
	if err != nil {
		return fmt.Errorf("set collaborator: %w", err)
	}
	p.IsCollaborator = on
	p.Touch(now)
	return nil
}

// ConfirmParticipant marks a participant CONFIRMED on an organizer's behalf.
func (s *AccessService) ConfirmParticipant(ctx context.Context, eventID, userID, callerID string) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkPermission(e, callerID); err != nil {
		return nil, err
	}
	if err := e.RosterMutable(); err != nil {
		return nil, err
	}

	p, err := s.findParticipant(ctx, e.ID, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case p == nil:
		return nil, domainerrors.NotFound("user is not a participant")
	case p.Status == domain.StatusConfirmed:
		return nil, domainerrors.AlreadyExists("participant is already confirmed")
	case p.IsPresent():
		return nil, domainerrors.InvalidState("participant is already present")
	}

	return s.UpdateParticipantStatus(ctx, p.ID, domain.StatusConfirmed)
}

// RemoveParticipant deletes userID's membership. The owner, a collaborator
// or the user themself may do so. The owner's own record is kept.
func (s *AccessService) RemoveParticipant(ctx context.Context, eventID, userID, callerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if callerID != userID || callerID == "" {
		if err := checkPermission(e, callerID); err != nil {
			return err
		}
	}
	if err := e.RosterMutable(); err != nil {
		return err
	}
	if e.IsOwner(userID) {
		return domainerrors.InvalidArgument("the owner cannot be removed")
	}

	p, err := s.findParticipant(ctx, e.ID, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return domainerrors.NotFound("user is not a participant")
	}

	err = s.store.DeleteParticipant(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("user is not a participant")
	}
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}

	s.log.WithParticipant(e.ID, p.ID).Info("participant removed", "user_id", userID, "caller_id", callerID)
	return nil
}

// UpdateParticipantStatus appends a history entry and updates the cached
// status in one transaction. Every status change goes through here.
func (s *AccessService) UpdateParticipantStatus(ctx context.Context, participantID string, status domain.ParticipantStatus) (*domain.Participant, error) {
	return updateParticipantStatus(ctx, &s.base, participantID, status)
}

func updateParticipantStatus(ctx context.Context, b *base, participantID string, status domain.ParticipantStatus) (*domain.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domainerrors.InvalidArgumentf("unknown participant status %q", status)
	}

	p, err := b.getParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	entry, err := newHistoryEntry(p.ID, status, now)
	if err != nil {
		return nil, err
	}
	err = b.store.UpdateStatus(ctx, p.ID, entry)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("participant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update participant status: %w", err)
	}

	from := p.Status
	p.Status = status
	p.Touch(now)
	b.log.WithParticipant(p.EventID, p.ID).Info("participant status changed", "from", from, "to", status)
	return p, nil
}
