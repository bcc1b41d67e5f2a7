package models

import (
	"time"

	"gorm.io/gorm"
)

// GuestUID identifies an unauthenticated caller. It is never stored.
const GuestUID int64 = 0

// User represents a registered forum account.
type User struct {
	// ID is the uid. Always greater than GuestUID.
	ID int64 `gorm:"primaryKey;autoIncrement"`
	// Active indicates whether the account may act on the forum.
	Active bool
	// Username is the unique name of the account.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address.
	Email     string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
