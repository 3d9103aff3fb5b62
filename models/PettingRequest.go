package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// PettingRequest is a user's request to pet another user's dog.
// Status moves pending -> accepted|rejected exactly once; terminal states
// are immutable. ExpiresAt (24h after AppliedAt) is advisory.
type PettingRequest struct {
	gorm.Model
	RequesterID uint `json:"requesterID" gorm:"not null;index"`
	Requester   User `json:"requester" gorm:"foreignKey:RequesterID"`
	DogID       uint `json:"dogID" gorm:"not null;index"`
	Dog         Dog  `json:"dog" gorm:"foreignKey:DogID"`
	OwnerID     uint `json:"ownerID" gorm:"not null;index"` // the dog's owner

	Status    string    `json:"status" gorm:"size:16;index;default:pending"`
	Message   string    `json:"message" gorm:"type:text"`
	AppliedAt time.Time `json:"appliedAt"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Requester location snapshot at apply time
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
