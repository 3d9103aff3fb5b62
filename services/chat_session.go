package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"pawmatching-server/models"

	"gorm.io/gorm"
)

// ChatSessionLifetime is the fixed lifetime of a chat session from creation.
const ChatSessionLifetime = 2 * time.Hour

// chatMonitorInterval is how often a live session rechecks its expiry.
const chatMonitorInterval = time.Second

var (
	ErrNoSession       = errors.New("no chat session resolved")
	ErrSessionClosed   = errors.New("chat session is closed")
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrNotParticipant  = errors.New("user is not a participant of this chat")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrMatchNotFound   = errors.New("match not found")
)

// ChatSessionController owns the lifecycle of chat sessions: resolution or
// creation, the one-shot active -> closed transition, guarded sends and
// read-marking. Expiry is always derived from the stored ExpiresAt against
// the clock, never from elapsed ticks.
type ChatSessionController struct {
	db    *gorm.DB
	clock Clock

	monitor *SessionTimer
}

func NewChatSessionController(db *gorm.DB, clock Clock) *ChatSessionController {
	if clock == nil {
		clock = time.Now
	}
	return &ChatSessionController{db: db, clock: clock}
}

// ResolveByID loads an existing session, backfilling ExpiresAt for rows that
// predate the field (CreatedAt + 2h, written once, idempotent).
func (c *ChatSessionController) ResolveByID(chatID uint) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := c.db.First(&session, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if err := c.backfillExpiry(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ResolveByMatch returns the session linked to a match, creating it when the
// match has none yet. Creation and the match back-link are two related
// writes, not atomic with each other; the accept transaction is the only
// place both are created together.
func (c *ChatSessionController) ResolveByMatch(matchID uint) (*models.ChatSession, error) {
	var match models.Match
	if err := c.db.First(&match, matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if match.ChatSessionID != nil {
		return c.ResolveByID(*match.ChatSessionID)
	}

	now := c.clock()
	expiresAt := now.Add(ChatSessionLifetime)
	session := models.ChatSession{
		MatchID:     match.ID,
		DogID:       match.DogID,
		OwnerID:     match.OwnerID,
		RequesterID: match.RequesterID,
		Status:      models.ChatStatusActive,
		ExpiresAt:   &expiresAt,
	}
	if err := c.db.Create(&session).Error; err != nil {
		return nil, err
	}
	if err := c.db.Model(&match).Update("chat_session_id", session.ID).Error; err != nil {
		// The session exists either way; the back-link is recoverable on the
		// next resolve.
		log.Printf("chat: match %d back-link failed: %v", match.ID, err)
	}
	return &session, nil
}

// Expired reports whether the session is closed or past its expiry as of now.
func (c *ChatSessionController) Expired(session *models.ChatSession) bool {
	if session.Status == models.ChatStatusClosed {
		return true
	}
	if session.ExpiresAt == nil {
		return false
	}
	return !c.clock().Before(*session.ExpiresAt)
}

// CloseIfExpired persists the active -> closed transition when the session
// has passed its expiry. Returns whether a transition happened.
func (c *ChatSessionController) CloseIfExpired(session *models.ChatSession) (bool, error) {
	if session.Status != models.ChatStatusActive || !c.Expired(session) {
		return false, nil
	}
	return true, c.Close(session)
}

// Close transitions the session to closed exactly once; closed is terminal.
func (c *ChatSessionController) Close(session *models.ChatSession) error {
	if session.Status == models.ChatStatusClosed {
		return nil
	}
	now := c.clock()
	result := c.db.Model(&models.ChatSession{}).
		Where("id = ? AND status = ?", session.ID, models.ChatStatusActive).
		Updates(map[string]interface{}{"status": models.ChatStatusClosed, "closed_at": now})
	if result.Error != nil {
		return result.Error
	}
	session.Status = models.ChatStatusClosed
	session.ClosedAt = &now
	return nil
}

// Monitor rechecks the session once per second and persists the closed
// transition on expiry, then cancels itself. Store failure on this path is
// logged, never surfaced: the next tick retries. Starting a monitor cancels
// the previous one; Stop it on early teardown.
func (c *ChatSessionController) Monitor(session *models.ChatSession, onClose func()) {
	if c.monitor != nil {
		c.monitor.Stop()
	}
	start := session.CreatedAt
	if session.ExpiresAt != nil {
		start = session.ExpiresAt.Add(-ChatSessionLifetime)
	}
	monitor := NewSessionTimer(start, ChatSessionLifetime, c.clock)
	c.monitor = monitor
	monitor.Run(chatMonitorInterval, func(remaining time.Duration, expired bool) {
		if !expired {
			return
		}
		closed, err := c.CloseIfExpired(session)
		if err != nil {
			log.Printf("chat: session %d expiry close failed: %v", session.ID, err)
			return
		}
		if closed && onClose != nil {
			onClose()
		}
		monitor.Stop()
	})
}

// StopMonitor cancels the expiry monitor if one is running.
func (c *ChatSessionController) StopMonitor() {
	if c.monitor != nil {
		c.monitor.Stop()
	}
}

// SendMessage appends a message to an active session and refreshes the
// last-message cache. The cache update is an independent best-effort write:
// a message without a summary is an accepted inconsistency, corrected on the
// next send.
func (c *ChatSessionController) SendMessage(session *models.ChatSession, senderID uint, text string) (*models.ChatMessage, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	if senderID != session.OwnerID && senderID != session.RequesterID {
		return nil, ErrNotParticipant
	}
	if c.Expired(session) {
		return nil, ErrSessionClosed
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	message := models.ChatMessage{
		ChatSessionID: session.ID,
		SenderID:      senderID,
		Text:          trimmed,
		Read:          false,
	}
	if err := c.db.Create(&message).Error; err != nil {
		return nil, err
	}

	if err := c.db.Model(&models.ChatSession{}).Where("id = ?", session.ID).
		Updates(map[string]interface{}{
			"last_message_text": trimmed,
			"last_message_at":   message.CreatedAt,
		}).Error; err != nil {
		log.Printf("chat: session %d last-message cache update failed: %v", session.ID, err)
	}

	return &message, nil
}

// MarkRead flips Read on every unread message in the session not sent by the
// viewer. Fire-and-forget from the handler's perspective.
func (c *ChatSessionController) MarkRead(session *models.ChatSession, viewerID uint) error {
	if session == nil {
		return ErrNoSession
	}
	if viewerID != session.OwnerID && viewerID != session.RequesterID {
		return ErrNotParticipant
	}
	return c.db.Model(&models.ChatMessage{}).
		Where("chat_session_id = ? AND sender_id <> ? AND read = ?", session.ID, viewerID, false).
		Update("read", true).Error
}

func (c *ChatSessionController) backfillExpiry(session *models.ChatSession) error {
	if session.ExpiresAt != nil {
		return nil
	}
	expiresAt := session.CreatedAt.Add(ChatSessionLifetime)
	if err := c.db.Model(&models.ChatSession{}).
		Where("id = ? AND expires_at IS NULL", session.ID).
		Update("expires_at", expiresAt).Error; err != nil {
		return err
	}
	session.ExpiresAt = &expiresAt
	return nil
}
