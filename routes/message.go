package routes

import (
	"fmt"
	"unicode/utf8"

	"pawmatching-server/models"
	"pawmatching-server/services"
	"pawmatching-server/storage"
	"pawmatching-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

const messagePreviewLength = 120

func CreateMessage(ctx iris.Context) {
	params := ctx.Params()
	id, err := params.GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid chat ID.", ctx)
		return
	}

	var input CreateMessageInput
	if readErr := ctx.ReadJSON(&input); readErr != nil {
		utils.HandleValidationErrors(readErr, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	session, resolveErr := chats.ResolveByID(id)
	if resolveErr != nil {
		handleChatError(resolveErr, ctx)
		return
	}

	message, sendErr := chats.SendMessage(session, claims.ID, input.Text)
	if sendErr != nil {
		handleChatError(sendErr, ctx)
		return
	}

	recipientID := session.OwnerID
	if claims.ID == session.OwnerID {
		recipientID = session.RequesterID
	}

	var sender models.User
	if err := storage.DB.First(&sender, claims.ID).Error; err == nil {
		senderName := fmt.Sprintf("%s %s", sender.FirstName, sender.LastName)
		preview := messagePreview(message.Text)
		notificationService := services.NewNotificationService()
		go notificationService.SendChatMessageNotification(
			session.ID, message.ID, recipientID, claims.ID, senderName, preview,
		)
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(message)
}

// ListMessages: GET /api/chat/{id}/messages?cursor=...&limit=...
// Pages backwards from the cursor, returning messages in chronological order.
func ListMessages(ctx iris.Context) {
	params := ctx.Params()
	id, err := params.GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid chat ID.", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	session, resolveErr := chats.ResolveByID(id)
	if resolveErr != nil {
		handleChatError(resolveErr, ctx)
		return
	}

	if claims.ID != session.OwnerID && claims.ID != session.RequesterID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	limit, _ := ctx.URLParamInt("limit")
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	cursor, _ := ctx.URLParamInt("cursor")

	q := storage.DB.Where("chat_session_id = ?", session.ID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var msgs []models.ChatMessage
	if err := q.Preload("Sender").Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	nextCursor := 0
	if len(msgs) > 0 {
		nextCursor = int(msgs[0].ID)
	}
	ctx.JSON(iris.Map{"messages": msgs, "nextCursor": nextCursor})
}

// MarkMessagesRead flips every unread message from the other participant.
func MarkMessagesRead(ctx iris.Context) {
	params := ctx.Params()
	id, err := params.GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid chat ID.", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	session, resolveErr := chats.ResolveByID(id)
	if resolveErr != nil {
		handleChatError(resolveErr, ctx)
		return
	}

	if err := chats.MarkRead(session, claims.ID); err != nil {
		handleChatError(err, ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true})
}

// messagePreview shortens text for a push preview without splitting a
// multi-byte rune at the cut.
func messagePreview(text string) string {
	if len(text) <= messagePreviewLength {
		return text
	}
	cut := messagePreviewLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

type CreateMessageInput struct {
	Text string `json:"text" validate:"required,max=5000"`
}
