package models

import "gorm.io/gorm"

// ChatMessage is a single message inside a chat session. Append-only;
// Read flips false -> true once, when the non-sender views it.
type ChatMessage struct {
	gorm.Model
	ChatSessionID uint        `json:"chatSessionID" gorm:"not null;index"`
	ChatSession   ChatSession `json:"-" gorm:"foreignKey:ChatSessionID"`

	SenderID uint `json:"senderID" gorm:"not null;index"`
	Sender   User `json:"sender" gorm:"foreignKey:SenderID"`

	Text string `json:"text" gorm:"type:text"`
	Read bool   `json:"read" gorm:"index"`
}
