package domain

import "time"

// ParticipantStatus is a participant's attendance progress.
type ParticipantStatus string

const (
	// StatusInvited is set on join.
	StatusInvited ParticipantStatus = "INVITED"
	// StatusConfirmed is set by an organizer, or on the owner at creation.
	StatusConfirmed ParticipantStatus = "CONFIRMED"
	// StatusPresent is only reachable by redeeming a check-in code.
	StatusPresent ParticipantStatus = "PRESENT"
)

// Valid reports whether s is a known status.
func (s ParticipantStatus) Valid() bool {
	switch s {
	case StatusInvited, StatusConfirmed, StatusPresent:
		return true
	}
	return false
}

// Participant is one user's membership in one event.
// Status is a cache of the latest HistoryEntry and is written with it.
type Participant struct {
	Syncable
	EventID        string            `json:"event_id"`
	UserID         string            `json:"user_id"`
	Status         ParticipantStatus `json:"status"`
	IsCollaborator bool              `json:"is_collaborator"`
	CheckInCode    string            `json:"-"`
}

// IsPresent reports whether the participant has checked in.
func (p *Participant) IsPresent() bool {
	return p.Status == StatusPresent
}

// HistoryEntry is one append-only record of a status change.
type HistoryEntry struct {
	ID            string            `json:"id"`
	ParticipantID string            `json:"participant_id"`
	Status        ParticipantStatus `json:"status"`
	At            time.Time         `json:"at"`
}

// CheckIn is an issued attendance code.
type CheckIn struct {
	EventID       string    `json:"event_id"`
	ParticipantID string    `json:"participant_id"`
	Code          string    `json:"code"`
	IssuedAt      time.Time `json:"issued_at"`
}
