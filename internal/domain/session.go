package domain

import "time"

// Session revocation reasons recorded in the audit trail. Rows are never
// physically deleted inside the retention window; revocation is logical.
const (
	RevokeReasonUserLogout      = "user_logout"
	RevokeReasonUserTerminated  = "user_terminated"
	RevokeReasonPasswordChanged = "password_changed"
	RevokeReasonExpired         = "expired"
	RevokeReasonAdminForced     = "admin_forced"
)

// Session is an authenticated administrator login. Only the one-way hash of
// the session token is persisted; the raw token exists client-side only.
type Session struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PublicID      string     `gorm:"size:64;uniqueIndex;not null" json:"public_id"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	TokenHash     string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	UserAgent     string     `gorm:"size:512" json:"user_agent"`
	IP            string     `gorm:"size:64" json:"ip"`
	LastSeenAt    time.Time  `gorm:"index" json:"last_seen_at"`
	ExpiresAt     time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt     *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	RevokedReason *string    `gorm:"size:64" json:"revoked_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Usable reports whether the session authenticates requests at the given
// instant. Expired-but-unpurged rows are never usable.
func (s *Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
