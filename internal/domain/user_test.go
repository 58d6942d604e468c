package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Name(t *testing.T) {
	assert.Equal(t, "Ada", (&User{Username: "ada", DisplayName: "Ada"}).Name())
	assert.Equal(t, "ada", (&User{Username: "ada"}).Name())
}

func TestNewEventView(t *testing.T) {
	e := newEvent(EventCreated)
	e.CollaboratorIDs = []string{"usr-collab"}

	tests := []struct {
		name          string
		userID        string
		participant   *Participant
		wantStatus    UserStatus
		wantConfirmed bool
	}{
		{"owner", "usr-owner", &Participant{Status: StatusConfirmed}, UserStatusOwner, true},
		{"owner without record", "usr-owner", nil, UserStatusOwner, true},
		{"collaborator", "usr-collab", &Participant{Status: StatusInvited, IsCollaborator: true}, UserStatusCollaborator, false},
		{"confirmed participant", "usr-p", &Participant{Status: StatusConfirmed}, UserStatusParticipant, true},
		{"present participant", "usr-p", &Participant{Status: StatusPresent}, UserStatusParticipant, false},
		{"visitor", "usr-v", nil, UserStatusVisitor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := NewEventView(e, tt.userID, tt.participant)
			assert.Equal(t, tt.wantStatus, view.UserStatus)
			assert.Equal(t, tt.wantConfirmed, view.UserConfirmed)
			assert.Same(t, e, view.Event)
		})
	}
}

func TestParticipantStatus_Valid(t *testing.T) {
	for _, s := range []ParticipantStatus{StatusInvited, StatusConfirmed, StatusPresent} {
		assert.True(t, s.Valid())
	}
	assert.False(t, ParticipantStatus("LATE").Valid())
}
