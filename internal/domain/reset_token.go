package domain

import "time"

// Reset token revocation reasons.
const (
	ResetRevokeReasonNewRequest = "new_request"
	ResetRevokeReasonUsed       = "used"
	ResetRevokeReasonExpired    = "expired"
)

// ResetToken authorizes a single password change without an active session.
// At most one token per user is active (unused, unrevoked, unexpired) at a
// time; issuing a new one revokes all prior active tokens.
type ResetToken struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PublicID      string     `gorm:"size:64;uniqueIndex;not null" json:"public_id"`
	UserID        uint       `gorm:"index;not null" json:"user_id"`
	TokenHash     string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	ExpiresAt     time.Time  `gorm:"index;not null" json:"expires_at"`
	UsedAt        *time.Time `gorm:"index" json:"used_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason *string    `gorm:"size:64" json:"revoked_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Active reports whether the token can still be consumed.
func (t *ResetToken) Active(now time.Time) bool {
	return t.UsedAt == nil && t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
