package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ChatStatusActive = "active"
	ChatStatusClosed = "closed"
)

// ChatSession is the time-boxed messaging thread between the two matched
// users. ExpiresAt is set once at creation (or lazily backfilled for rows
// predating the field) and never extended; active -> closed happens exactly
// once, by wall-clock expiry or explicit close.
type ChatSession struct {
	gorm.Model
	MatchID     uint `json:"matchID" gorm:"not null;index"`
	DogID       uint `json:"dogID" gorm:"not null;index"`
	OwnerID     uint `json:"ownerID" gorm:"not null;index"`
	RequesterID uint `json:"requesterID" gorm:"not null;index"`

	Status    string     `json:"status" gorm:"size:16;index;default:active"`
	ExpiresAt *time.Time `json:"expiresAt" gorm:"index"`
	ClosedAt  *time.Time `json:"closedAt"`

	// Denormalized last-message cache for list views; best-effort,
	// reconciled on the next send.
	LastMessageText string     `json:"lastMessageText" gorm:"size:1024"`
	LastMessageAt   *time.Time `json:"lastMessageAt"`
}
