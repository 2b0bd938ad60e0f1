package models

import "github.com/google/uuid"

// Learner identifies the authenticated user on whose behalf an operation runs.
// It is extracted from the access token once per request and passed down explicitly.
type Learner struct {
	ID    uuid.UUID
	Email string
}

// UserID returns the learner ID in the string form stored in the database
func (l Learner) UserID() string {
	return l.ID.String()
}
