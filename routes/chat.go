package routes

import (
	"errors"
	"time"

	"pawmatching-server/models"
	"pawmatching-server/services"
	"pawmatching-server/storage"
	"pawmatching-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// ResolveChatSession resolves the session for a match, creating it if the
// match has none yet, and returns it with its live expiry state.
func ResolveChatSession(ctx iris.Context) {
	params := ctx.Params()
	matchID, err := params.GetUint("matchID")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid match ID.", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	session, resolveErr := chats.ResolveByMatch(matchID)
	if resolveErr != nil {
		handleChatError(resolveErr, ctx)
		return
	}

	if claims.ID != session.OwnerID && claims.ID != session.RequesterID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	if _, err := chats.CloseIfExpired(session); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	respondChatSession(session, ctx)
}

func GetChatSession(ctx iris.Context) {
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

	if _, err := chats.CloseIfExpired(session); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	respondChatSession(session, ctx)
}

// ListChatSessions returns the caller's sessions, most recent activity
// first, with the denormalized last-message summary and unread count.
func ListChatSessions(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var sessions []models.ChatSession
	if err := storage.DB.
		Where("owner_id = ? OR requester_id = ?", claims.ID, claims.ID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&sessions).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	summaries := make([]iris.Map, 0, len(sessions))
	for i := range sessions {
		session := &sessions[i]
		chats.CloseIfExpired(session)

		otherID := session.OwnerID
		if claims.ID == session.OwnerID {
			otherID = session.RequesterID
		}
		var other models.User
		storage.DB.First(&other, otherID)

		var dog models.Dog
		storage.DB.First(&dog, session.DogID)

		var unread int64
		storage.DB.Model(&models.ChatMessage{}).
			Where("chat_session_id = ? AND sender_id <> ? AND read = ?", session.ID, claims.ID, false).
			Count(&unread)

		summaries = append(summaries, iris.Map{
			"session":     session,
			"otherUser":   &other,
			"dog":         dog,
			"unreadCount": unread,
			"expired":     chats.Expired(session),
		})
	}

	ctx.JSON(summaries)
}

func CloseChatSession(ctx iris.Context) {
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

	if err := chats.Close(session); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	respondChatSession(session, ctx)
}

// ExpireStaleSessions closes every active session past its expiry. Meant to
// be hit by a scheduler; safe to call repeatedly.
func ExpireStaleSessions(ctx iris.Context) {
	now := time.Now()
	result := storage.DB.Model(&models.ChatSession{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.ChatStatusActive, now).
		Updates(map[string]interface{}{"status": models.ChatStatusClosed, "closed_at": now})
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"closed": result.RowsAffected,
	})
}

func respondChatSession(session *models.ChatSession, ctx iris.Context) {
	remainingSeconds := 0
	if session.Status == models.ChatStatusActive && session.ExpiresAt != nil {
		if remaining := time.Until(*session.ExpiresAt); remaining > 0 {
			remainingSeconds = int(remaining.Seconds())
		}
	}

	ctx.JSON(iris.Map{
		"session":          session,
		"expired":          chats.Expired(session),
		"remainingSeconds": remainingSeconds,
	})
}

func handleChatError(err error, ctx iris.Context) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		utils.CreateError(iris.StatusNotFound, "Not Found", "Chat session not found.", ctx)
	case errors.Is(err, services.ErrMatchNotFound):
		utils.CreateError(iris.StatusNotFound, "Not Found", "Match not found.", ctx)
	case errors.Is(err, services.ErrNotParticipant):
		ctx.StatusCode(iris.StatusForbidden)
	case errors.Is(err, services.ErrSessionClosed):
		utils.CreateError(iris.StatusConflict, "Chat Error", "This chat session has ended.", ctx)
	case errors.Is(err, services.ErrEmptyMessage):
		utils.CreateError(iris.StatusBadRequest, "Chat Error", "Message text is empty.", ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}
