package models

import "time"

// RefreshToken is one long-lived opaque credential row. A token is valid for
// exchange iff !Used && !Revoked && now < ExpiresAt. Used, Revoked and expiry
// are terminal: a rotated token's successor is a distinct row.
type RefreshToken struct {
	ID         string
	UserID     string
	Token      string
	ClientInfo string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Used       bool
	Revoked    bool
}

// Alive reports whether the token may still be exchanged at the given instant.
func (t *RefreshToken) Alive(now time.Time) bool {
	return !t.Used && !t.Revoked && now.Before(t.ExpiresAt)
}
