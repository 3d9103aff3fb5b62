package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName           string         `json:"firstName"`
	LastName            string         `json:"lastName"`
	Email               string         `json:"email"`
	Password            string         `json:"-"`
	SocialLogin         bool           `json:"socialLogin"`
	SocialProvider      string         `json:"socialProvider"`
	AvatarURL           string         `json:"avatarURL"`
	Bio                 string         `json:"bio"`
	IsOwner             bool           `json:"isOwner"` // has at least one registered dog
	Dogs                []Dog          `json:"dogs" gorm:"foreignKey:OwnerID;references:ID"`
	SavedDogs           datatypes.JSON `json:"savedDogs"`
	PushTokens          datatypes.JSON `json:"pushTokens"`
	AllowsNotifications *bool          `json:"allowsNotifications"`
}

// Custom JSON marshaling so the datatypes.JSON columns render as arrays
func (u *User) MarshalJSON() ([]byte, error) {
	type Alias User
	aux := &struct {
		SavedDogs  []int    `json:"savedDogs,omitempty"`
		PushTokens []string `json:"pushTokens,omitempty"`
		*Alias
	}{
		SavedDogs:  []int{},
		PushTokens: []string{},
		Alias:      (*Alias)(u),
	}

	if u.SavedDogs != nil {
		var savedDogs []int
		if err := json.Unmarshal(u.SavedDogs, &savedDogs); err == nil {
			aux.SavedDogs = savedDogs
		}
	}

	if u.PushTokens != nil {
		var pushTokens []string
		if err := json.Unmarshal(u.PushTokens, &pushTokens); err == nil {
			aux.PushTokens = pushTokens
		}
	}

	return json.Marshal(aux)
}
