package services

import (
	"encoding/json"
	"fmt"
	"log"

	"pawmatching-server/models"
	"pawmatching-server/storage"
	"pawmatching-server/utils"
)

// NotificationService resolves a recipient's Expo tokens and fires pushes
// for the three events the app notifies on: a new petting request, an
// accepted match and a new chat message. Recipients without tokens or with
// notifications disabled are skipped silently.
type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData is the data payload attached to every push for client
// deep linking.
type NotificationData struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	DogID  string `json:"dogId,omitempty"`
	UserID string `json:"userId,omitempty"`
	ChatID string `json:"chatId,omitempty"`
	Screen string `json:"screen"`
}

func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, nil
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// SendNotificationToUser fans a push out to all of the user's tokens and
// writes the matching in-app notification row. A recipient without usable
// tokens is not an error.
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("Failed to get push tokens for user %d: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":   data.Type,
		"id":     data.ID,
		"dogId":  data.DogID,
		"userId": data.UserID,
		"chatId": data.ChatID,
		"screen": data.Screen,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token, err)
			lastError = err
		}
	}

	return lastError
}

// SendPettingRequestNotification notifies a dog's owner about a new request.
func (ns *NotificationService) SendPettingRequestNotification(requestID, dogID, ownerID, requesterID uint, requesterName, dogName string) error {
	title := "New Petting Request"
	body := fmt.Sprintf("%s would like to pet %s", requesterName, dogName)

	storage.DB.Create(&models.Notification{
		UserID:  ownerID,
		Title:   title,
		Message: body,
		Type:    "petting_request",
		RefID:   requestID,
		RefType: "apply",
	})

	data := NotificationData{
		Type:   "petting_request",
		ID:     fmt.Sprintf("%d", requestID),
		DogID:  fmt.Sprintf("%d", dogID),
		UserID: fmt.Sprintf("%d", requesterID),
		Screen: "ReceivedRequests",
	}
	return ns.SendNotificationToUser(ownerID, title, body, data)
}

// SendMatchNotification notifies the requester that their request was
// accepted and a chat opened.
func (ns *NotificationService) SendMatchNotification(matchID, chatID, requesterID uint, dogName string) error {
	title := "It's a Match!"
	body := fmt.Sprintf("Your request to pet %s was accepted. Say hi!", dogName)

	storage.DB.Create(&models.Notification{
		UserID:  requesterID,
		Title:   title,
		Message: body,
		Type:    "match",
		RefID:   matchID,
		RefType: "match",
	})

	data := NotificationData{
		Type:   "match",
		ID:     fmt.Sprintf("%d", matchID),
		ChatID: fmt.Sprintf("%d", chatID),
		Screen: "Chat",
	}
	return ns.SendNotificationToUser(requesterID, title, body, data)
}

// SendChatMessageNotification notifies the other participant about a new
// message.
func (ns *NotificationService) SendChatMessageNotification(chatID, messageID, recipientID, senderID uint, senderName, preview string) error {
	title := senderName
	body := preview

	storage.DB.Create(&models.Notification{
		UserID:  recipientID,
		Title:   "New Message",
		Message: fmt.Sprintf("%s: %s", senderName, preview),
		Type:    "chat_message",
		RefID:   chatID,
		RefType: "chat",
	})

	data := NotificationData{
		Type:   "chat_message",
		ID:     fmt.Sprintf("%d", messageID),
		ChatID: fmt.Sprintf("%d", chatID),
		UserID: fmt.Sprintf("%d", senderID),
		Screen: "Chat",
	}
	return ns.SendNotificationToUser(recipientID, title, body, data)
}
