// Package domain holds the EventSphere entities and the event state machine.
package domain

import (
	"slices"
	"time"

	domainerrors "github.com/eventsphere/eventsphere-server/internal/errors"
)

// EventState is the lifecycle state of an event.
type EventState string

const (
	// EventCreated is the initial state. The roster is open.
	EventCreated EventState = "CREATED"
	// EventActive means the event is running. Check-ins are accepted.
	EventActive EventState = "ACTIVE"
	// EventFinished is terminal.
	EventFinished EventState = "FINISHED"
	// EventCanceled is terminal.
	EventCanceled EventState = "CANCELED"
)

// Valid reports whether s is a known state.
func (s EventState) Valid() bool {
	switch s {
	case EventCreated, EventActive, EventFinished, EventCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s EventState) IsTerminal() bool {
	return s == EventFinished || s == EventCanceled
}

// AccessMode governs who may join without an invite.
type AccessMode string

const (
	AccessPublic  AccessMode = "PUBLIC"
	AccessPrivate AccessMode = "PRIVATE"
)

// Event is one scheduled gathering.
type Event struct {
	Syncable
	OwnerID      string `json:"owner_id"`
	Name         string `json:"name"`
	Localization string `json:"localization"`
	Description  string `json:"description"`

	// FixedStart and FixedEnd are the planned window. ActualStart and
	// ActualEnd record when the transitions really happened.
	FixedStart  time.Time  `json:"fixed_start"`
	FixedEnd    time.Time  `json:"fixed_end"`
	ActualStart *time.Time `json:"actual_start,omitempty"`
	ActualEnd   *time.Time `json:"actual_end,omitempty"`

	MaxParticipants int        `json:"max_participants"` // 0 = unlimited
	Classification  int        `json:"classification"`
	Access          AccessMode `json:"access"`
	State           EventState `json:"state"`

	// Empty until first requested, then never rotated.
	InviteToken string `json:"invite_token,omitempty"`
	InviteCode  string `json:"invite_code,omitempty"`

	PhotoRef      string `json:"photo_ref,omitempty"`
	PhotoBlurHash string `json:"photo_blur_hash,omitempty"`

	// Derived from participants flagged as collaborators.
	CollaboratorIDs []string `json:"collaborator_ids"`
}

// Start moves a CREATED event to ACTIVE and stamps ActualStart with now.
func (e *Event) Start(now time.Time) error {
	if e.State != EventCreated {
		return domainerrors.InvalidStatef("cannot start event in state %s", e.State)
	}
	e.State = EventActive
	e.ActualStart = &now
	e.Touch(now)
	return nil
}

// Finish moves an ACTIVE event to FINISHED and stamps ActualEnd with now.
func (e *Event) Finish(now time.Time) error {
	if e.State != EventActive {
		return domainerrors.InvalidStatef("cannot finish event in state %s", e.State)
	}
	e.State = EventFinished
	e.ActualEnd = &now
	e.Touch(now)
	return nil
}

// Cancel moves a CREATED or ACTIVE event to CANCELED.
func (e *Event) Cancel(now time.Time) error {
	switch e.State {
	case EventCreated, EventActive:
	case EventCanceled:
		return domainerrors.InvalidState("event is already canceled")
	default:
		return domainerrors.InvalidStatef("cannot cancel event in state %s", e.State)
	}
	e.State = EventCanceled
	e.Touch(now)
	return nil
}

// AdvanceSchedule applies the time-driven transitions due at now and reports
// whether anything changed. A CREATED event past its end goes straight through
// ACTIVE to FINISHED. Actual timestamps are only stamped when unset.
func (e *Event) AdvanceSchedule(now time.Time) bool {
	changed := false
	if e.State == EventCreated && !now.Before(e.FixedStart) {
		e.State = EventActive
		if e.ActualStart == nil {
			e.ActualStart = &now
		}
		changed = true
	}
	if e.State == EventActive && !now.Before(e.FixedEnd) {
		e.State = EventFinished
		if e.ActualEnd == nil {
			e.ActualEnd = &now
		}
		changed = true
	}
	if changed {
		e.Touch(now)
	}
	return changed
}

// AcceptsParticipants returns nil when new participants may join.
// Only CREATED events accept joins.
func (e *Event) AcceptsParticipants() error {
	switch e.State {
	case EventCreated:
		return nil
	case EventActive:
		return domainerrors.InvalidState("event has already started")
	case EventFinished:
		return domainerrors.InvalidState("event has finished")
	case EventCanceled:
		return domainerrors.InvalidState("event has been canceled")
	default:
		return domainerrors.InvalidStatef("unknown event state %s", e.State)
	}
}

// RosterMutable returns nil while organizers may still change the roster.
func (e *Event) RosterMutable() error {
	switch e.State {
	case EventCreated:
		return nil
	case EventActive:
		return domainerrors.InvalidState("participants cannot be changed once the event has started")
	case EventFinished:
		return domainerrors.InvalidState("event has finished")
	case EventCanceled:
		return domainerrors.InvalidState("event has been canceled")
	default:
		return domainerrors.InvalidStatef("unknown event state %s", e.State)
	}
}

// Editable returns nil unless the event is terminal.
func (e *Event) Editable() error {
	switch e.State {
	case EventFinished:
		return domainerrors.InvalidState("event has finished")
	case EventCanceled:
		return domainerrors.InvalidState("event has been canceled")
	}
	return nil
}

// IsOwner reports whether userID owns the event.
func (e *Event) IsOwner(userID string) bool {
	return userID != "" && e.OwnerID == userID
}

// IsCollaborator reports whether userID holds collaborator rights.
func (e *Event) IsCollaborator(userID string) bool {
	return userID != "" && slices.Contains(e.CollaboratorIDs, userID)
}

// CanManage is the owner-or-collaborator rule used by every mutating operation.
func (e *Event) CanManage(userID string) bool {
	return e.IsOwner(userID) || e.IsCollaborator(userID)
}

// IsFull reports whether count participants exhaust the capacity.
func (e *Event) IsFull(count int) bool {
	return e.MaxParticipants > 0 && count >= e.MaxParticipants
}

// EffectiveStart is ActualStart when set, else FixedStart.
func (e *Event) EffectiveStart() time.Time {
	if e.ActualStart != nil {
		return *e.ActualStart
	}
	return e.FixedStart
}

// HasInvite reports whether invite material has been minted.
func (e *Event) HasInvite() bool {
	return e.InviteToken != "" && e.InviteCode != ""
}
