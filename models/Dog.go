package models

import (
	"time"

	"gorm.io/gorm"
)

// Dog is a registered dog profile. While IsWalking is true the dog is
// discoverable by proximity search; Latitude/Longitude and
// LastWalkingStatusUpdate must be present and fresh for walking dogs.
type Dog struct {
	gorm.Model
	OwnerID uint `json:"ownerID" gorm:"not null;index"`
	Owner   User `json:"owner" gorm:"foreignKey:OwnerID"`

	Name     string `json:"name" gorm:"size:256"`
	Sex      string `json:"sex" gorm:"size:16"` // male | female
	Age      int    `json:"age"`
	Likes    string `json:"likes" gorm:"type:text"`
	Notes    string `json:"notes" gorm:"type:text"`
	ImageURL string `json:"imageURL" gorm:"size:512"`

	IsWalking               bool       `json:"isWalking" gorm:"index"`
	LastWalkingStatusUpdate *time.Time `json:"lastWalkingStatusUpdate"`
	Latitude                *float64   `json:"latitude"`
	Longitude               *float64   `json:"longitude"`
}
