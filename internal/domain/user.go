package domain

import "time"

// User statuses. A disabled administrator cannot authenticate.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is a back-office administrator account. The storefront's customer
// accounts live elsewhere; this table holds staff only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"size:255" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Status       string    `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
