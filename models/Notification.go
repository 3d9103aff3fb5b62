package models

import "gorm.io/gorm"

// Notification is the in-app notification feed row written alongside each
// push (new request, new match, new message).
type Notification struct {
	gorm.Model
	UserID  uint   `json:"userID" gorm:"not null;index"`
	Title   string `json:"title" gorm:"size:256"`
	Message string `json:"message" gorm:"type:text"`
	Type    string `json:"type" gorm:"size:32"` // petting_request | match | chat_message
	RefID   uint   `json:"refID"`
	RefType string `json:"refType" gorm:"size:32"` // apply | match | chat
	IsRead  bool   `json:"isRead" gorm:"index"`
}
