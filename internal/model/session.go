package model

import "time"

// Session is the server-side record of one issued bearer token. Only the
// token's hash is stored.
type Session struct {
	ID         string
	UserID     int64
	TokenHash  string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// ValidAt reports whether the session is still usable at t.
func (s *Session) ValidAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

// ClientInfo identifies the origin of a request for sessions and audit entries.
type ClientInfo struct {
	IP        string
	UserAgent string
}
