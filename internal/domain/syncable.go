package domain

import "time"

// Syncable holds the identity and timestamps shared by every stored entity.
type Syncable struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (s *Syncable) InitTimestamps(now time.Time) {
	s.CreatedAt = now
	s.UpdatedAt = now
}

// Touch sets UpdatedAt. Call it whenever the entity changes.
func (s *Syncable) Touch(now time.Time) {
	s.UpdatedAt = now
}
