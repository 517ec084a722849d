package model

import (
	"encoding/json"
	"time"
)

// Audit actions.
const (
	ActionSignup             = "signup"
	ActionLogin              = "login"
	ActionLoginFailed        = "login_failed"
	ActionLogout             = "logout"
	ActionLogoutAll          = "logout_all"
	ActionProfileUpdate      = "profile_update"
	ActionAccountDeactivated = "account_deactivated"
)

// AuditLogEntry is an append-only record of a security-relevant event.
// UserID is nil for anonymous attempts.
type AuditLogEntry struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"user_id"`
	Action    string          `json:"action"`
	IPAddress string          `json:"ip_address"`
	UserAgent string          `json:"user_agent"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditListResponse is a page of the caller's audit history.
type AuditListResponse struct {
	Entries []AuditLogEntry `json:"entries"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
