package domain

// UserStatus is a caller's relation to an event.
type UserStatus string

const (
	UserStatusOwner        UserStatus = "owner"
	UserStatusCollaborator UserStatus = "collaborator"
	UserStatusParticipant  UserStatus = "participant"
	UserStatusVisitor      UserStatus = "visitor"
)

// EventView is an event as seen by a specific user.
type EventView struct {
	Event         *Event     `json:"event"`
	UserStatus    UserStatus `json:"user_status"`
	UserConfirmed bool       `json:"user_confirmed"`
}

// NewEventView derives the caller's relation from the event and their
// participant record, which may be nil.
func NewEventView(e *Event, userID string, p *Participant) EventView {
	view := EventView{Event: e, UserStatus: UserStatusVisitor}
	switch {
	case e.IsOwner(userID):
		view.UserStatus = UserStatusOwner
		view.UserConfirmed = true
	case e.IsCollaborator(userID):
		view.UserStatus = UserStatusCollaborator
	case p != nil:
		view.UserStatus = UserStatusParticipant
	}
	if p != nil && p.Status == StatusConfirmed {
		view.UserConfirmed = true
	}
	return view
}

// AttendanceRow is one participant line of an attendance report.
type AttendanceRow struct {
	ParticipantID  string            `json:"participant_id"`
	UserID         string            `json:"user_id"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	IsCollaborator bool              `json:"is_collaborator"`
	Status         ParticipantStatus `json:"status"`
}

// AttendanceReport splits an event's participants into present and absent.
type AttendanceReport struct {
	EventID      string          `json:"event_id"`
	EventName    string          `json:"event_name"`
	State        EventState      `json:"state"`
	Total        int             `json:"total"`
	PresentCount int             `json:"present_count"`
	AbsentCount  int             `json:"absent_count"`
	Present      []AttendanceRow `json:"present"`
	Absent       []AttendanceRow `json:"absent"`
}
