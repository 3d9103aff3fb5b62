package models

import "gorm.io/gorm"

const MatchStatusActive = "active"

// Match is the accepted pairing from a petting request. Created exactly once,
// atomically with its ChatSession, when the request is accepted.
type Match struct {
	gorm.Model
	DogID       uint `json:"dogID" gorm:"not null;index"`
	Dog         Dog  `json:"dog" gorm:"foreignKey:DogID"`
	OwnerID     uint `json:"ownerID" gorm:"not null;index"`
	RequesterID uint `json:"requesterID" gorm:"not null;index"`

	Status        string `json:"status" gorm:"size:16;default:active"`
	ChatSessionID *uint  `json:"chatSessionID" gorm:"index"`
}
