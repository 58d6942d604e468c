package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	domainerrors "github.com/eventsphere/eventsphere-server/internal/errors"
	"github.com/eventsphere/eventsphere-server/internal/id"
	"github.com/eventsphere/eventsphere-server/internal/normalize"
	"github.com/eventsphere/eventsphere-server/internal/store"
	"github.com/eventsphere/eventsphere-server/internal/validation"
)

// upcomingStates are the states listed as upcoming.
var upcomingStates = []domain.EventState{domain.EventCreated, domain.EventActive}

// EventService is the lifecycle engine: registration, edits, manual
// transitions and the scheduled sweep.
type EventService struct {
	base
	blobs     store.BlobStore
	validator *validation.Validator

	photoMaxBytes int64
}

// NewEventService creates an event service. indexer and blobs may be nil.
func NewEventService(st Store, blobs store.BlobStore, indexer store.SearchIndexer, v *validation.Validator, logger *slog.Logger) *EventService {
	if v == nil {
		v = validation.New()
	}
	return &EventService{
		base:      newBase(st, indexer, logger),
		blobs:     blobs,
		validator: v,
	}
}

// SetPhotoLimit caps accepted photo sizes. n <= 0 removes the cap.
func (s *EventService) SetPhotoLimit(n int64) {
	s.photoMaxBytes = n
}

// RegisterEventInput holds the fields of a new event.
type RegisterEventInput struct {
	OwnerID         string            `json:"owner_id" validate:"required"`
	Name            string            `json:"name" validate:"required,notblank,max=200"`
	Localization    string            `json:"localization" validate:"required,max=500"`
	Description     string            `json:"description" validate:"required,max=10000"`
	FixedStart      time.Time         `json:"fixed_start" validate:"required"`
	FixedEnd        time.Time         `json:"fixed_end" validate:"required,gtfield=FixedStart"`
	MaxParticipants int               `json:"max_participants" validate:"gte=0"`
	Classification  int               `json:"classification" validate:"gte=0"`
	Access          domain.AccessMode `json:"access" validate:"required,oneof=PUBLIC PRIVATE"`
}

func (in *RegisterEventInput) normalize() {
	in.Name = normalize.Text(in.Name)
	in.Localization = normalize.Text(in.Localization)
	in.Description = normalize.Description(in.Description)
}

// UpdateEventInput replaces the editable fields of an event. A non-empty
// OwnerID different from the current owner transfers ownership.
type UpdateEventInput struct {
	Name            string            `json:"name" validate:"required,notblank,max=200"`
	Localization    string            `json:"localization" validate:"required,max=500"`
	Description     string            `json:"description" validate:"required,max=10000"`
	FixedStart      time.Time         `json:"fixed_start" validate:"required"`
	FixedEnd        time.Time         `json:"fixed_end" validate:"required,gtfield=FixedStart"`
	MaxParticipants int               `json:"max_participants" validate:"gte=0"`
	Classification  int               `json:"classification" validate:"gte=0"`
	Access          domain.AccessMode `json:"access" validate:"required,oneof=PUBLIC PRIVATE"`
	OwnerID         string            `json:"owner_id,omitempty"`
}

func (in *UpdateEventInput) normalize() {
	in.Name = normalize.Text(in.Name)
	in.Localization = normalize.Text(in.Localization)
	in.Description = normalize.Description(in.Description)
}

func validateSchedule(start, end time.Time) error {
	if !end.After(start) {
		return domainerrors.InvalidArgument("fixed_end must be after fixed_start")
	}
	return nil
}

// Register creates an event in CREATED together with its owner's CONFIRMED
// participant record.
func (s *EventService) Register(ctx context.Context, in RegisterEventInput) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in.normalize()
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if _, err := s.getUser(ctx, in.OwnerID); err != nil {
		return nil, err
	}
	if err := validateSchedule(in.FixedStart, in.FixedEnd); err != nil {
		return nil, err
	}

	eventID, err := id.Generate(id.PrefixEvent)
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	now := s.now()

	e := &domain.Event{
		Syncable:        domain.Syncable{ID: eventID},
		OwnerID:         in.OwnerID,
		Name:            in.Name,
		Localization:    in.Localization,
		Description:     in.Description,
		FixedStart:      in.FixedStart.UTC(),
		FixedEnd:        in.FixedEnd.UTC(),
		MaxParticipants: in.MaxParticipants,
		Classification:  in.Classification,
		Access:          in.Access,
		State:           domain.EventCreated,
		CollaboratorIDs: []string{},
	}
	e.InitTimestamps(now)

	owner, err := newMembership(e.ID, in.OwnerID, domain.StatusConfirmed, false, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateEvent(ctx, e, owner); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.reindex(ctx, e)
	s.log.WithEvent(e.ID).Info("event registered",
		"owner_id", e.OwnerID,
		"access", e.Access,
		"fixed_start", e.FixedStart,
	)
	return e, nil
}

// Get returns an event with its collaborator ids.
func (s *EventService) Get(ctx context.Context, eventID string) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.getEvent(ctx, eventID)
}

// GetForUser returns the event together with userID's relation to it.
func (s *EventService) GetForUser(ctx context.Context, eventID, userID string) (*domain.EventView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	p, err := s.findParticipant(ctx, e.ID, userID)
	if err != nil {
		return nil, err
	}
	view := domain.NewEventView(e, userID, p)
	return &view, nil
}

// ListUpcomingForUser lists CREATED and ACTIVE events userID owns or joined,
// earliest effective start first.
func (s *EventService) ListUpcomingForUser(ctx context.Context, userID string) ([]domain.EventView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events, err := s.store.ListEventsForUser(ctx, userID, upcomingStates...)
	if err != nil {
		return nil, fmt.Errorf("list events for user: %w", err)
	}
	return s.views(ctx, events, userID)
}

// ListPublic lists PUBLIC events in CREATED or ACTIVE as seen by userID,
// which may be empty for anonymous visitors.
func (s *EventService) ListPublic(ctx context.Context, userID string) ([]domain.EventView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events, err := s.store.ListPublicEvents(ctx, upcomingStates...)
	if err != nil {
		return nil, fmt.Errorf("list public events: %w", err)
	}
	return s.views(ctx, events, userID)
}

func (s *EventService) views(ctx context.Context, events []*domain.Event, userID string) ([]domain.EventView, error) {
	slices.SortStableFunc(events, func(a, b *domain.Event) int {
		return cmp.Compare(a.EffectiveStart().UnixNano(), b.EffectiveStart().UnixNano())
	})

	views := make([]domain.EventView, 0, len(events))
	for _, e := range events {
		p, err := s.findParticipant(ctx, e.ID, userID)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.NewEventView(e, userID, p))
	}
	return views, nil
}

// Update rewrites the editable fields of a non-terminal event. State is
// never changed here.
func (s *EventService) Update(ctx context.Context, eventID, callerID string, in UpdateEventInput) (*domain.Event, error) {
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
	if err := e.Editable(); err != nil {
		return nil, err
	}

	in.normalize()
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if err := validateSchedule(in.FixedStart, in.FixedEnd); err != nil {
		return nil, err
	}

	now := s.now()
	var newOwner *store.NewParticipant
	if in.OwnerID != "" && in.OwnerID != e.OwnerID {
		if _, err := s.getUser(ctx, in.OwnerID); err != nil {
			return nil, err
		}
		existing, err := s.findParticipant(ctx, e.ID, in.OwnerID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			np, err := newMembership(e.ID, in.OwnerID, domain.StatusConfirmed, false, now)
			if err != nil {
				return nil, err
			}
			newOwner = &np
		}
	}

	previousOwner := e.OwnerID
	e.Name = in.Name
	e.Localization = in.Localization
	e.Description = in.Description
	e.FixedStart = in.FixedStart.UTC()
	e.FixedEnd = in.FixedEnd.UTC()
	e.MaxParticipants = in.MaxParticipants
	e.Classification = in.Classification
	e.Access = in.Access
	if in.OwnerID != "" {
		e.OwnerID = in.OwnerID
	}
	e.Touch(now)

	err = s.store.UpdateEvent(ctx, e, newOwner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.reindex(ctx, e)
	l := s.log.WithEvent(e.ID)
	if e.OwnerID != previousOwner {
		l.Info("event ownership transferred", "from", previousOwner, "to", e.OwnerID, "caller_id", callerID)
	}
	l.Info("event updated", "caller_id", callerID)
	return e, nil
}

// Delete removes an event. Participants and history cascade. The photo blob
// and search document are removed best effort.
func (s *EventService) Delete(ctx context.Context, eventID, callerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, err := s.getEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if err := checkPermission(e, callerID); err != nil {
		return err
	}

	err = s.store.DeleteEvent(ctx, e.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.NotFound("event not found")
	}
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	l := s.log.WithEvent(e.ID)
	if e.PhotoRef != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, e.PhotoRef); err != nil {
			l.WithError(err).Warn("failed to delete event photo", "photo_ref", e.PhotoRef)
		}
	}
	if err := s.indexer.DeleteEvent(ctx, e.ID); err != nil {
		l.WithError(err).Warn("failed to remove event from search index")
	}
	l.Info("event deleted", "caller_id", callerID)
	return nil
}

// Start moves a CREATED event to ACTIVE now, regardless of FixedStart.
func (s *EventService) Start(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	return s.transition(ctx, eventID, callerID, "started", (*domain.Event).Start)
}

// Finish moves an ACTIVE event to FINISHED now, regardless of FixedEnd.
func (s *EventService) Finish(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	return s.transition(ctx, eventID, callerID, "finished", (*domain.Event).Finish)
}

// Cancel moves a CREATED or ACTIVE event to CANCELED.
func (s *EventService) Cancel(ctx context.Context, eventID, callerID string) (*domain.Event, error) {
	return s.transition(ctx, eventID, callerID, "canceled", (*domain.Event).Cancel)
}

// transition applies a manual state change. The write is conditional on the
// state read here, so losing a race with the sweep or another caller
// surfaces as InvalidState.
func (s *EventService) transition(
	ctx context.Context,
	eventID, callerID, verb string,
	apply func(*domain.Event, time.Time) error,
) (*domain.Event, error) {
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

	from := e.State
	if err := apply(e, s.now()); err != nil {
		return nil, err
	}

	err = s.store.TransitionEvent(ctx, e, from)
	switch {
	case errors.Is(err, store.ErrStateChanged):
		return nil, domainerrors.InvalidStatef("event was modified concurrently and is no longer %s", from)
	case errors.Is(err, store.ErrNotFound):
		return nil, domainerrors.NotFound("event not found")
	case err != nil:
		return nil, fmt.Errorf("transition event: %w", err)
	}

	s.reindex(ctx, e)
	s.log.WithEvent(e.ID).Info("event "+verb,
		"from", from,
		"to", e.State,
		"caller_id", callerID,
	)
	return e, nil
}
