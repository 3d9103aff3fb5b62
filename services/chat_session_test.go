package services

import (
	"testing"
	"time"

	"pawmatching-server/models"

	"gorm.io/gorm"
)

func seedMatch(t *testing.T, db *gorm.DB) *models.Match {
	t.Helper()
	match := &models.Match{DogID: 1, OwnerID: 1, RequesterID: 2, Status: models.MatchStatusActive}
	if err := db.Create(match).Error; err != nil {
		t.Fatalf("failed to seed match: %v", err)
	}
	return match
}

func TestResolveByMatchCreatesSession(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	controller := NewChatSessionController(db, fixedClock(now))

	match := seedMatch(t, db)

	session, err := controller.ResolveByMatch(match.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if session.Status != models.ChatStatusActive {
		t.Fatalf("expected active session, got %s", session.Status)
	}
	if session.ExpiresAt == nil || !session.ExpiresAt.Equal(now.Add(ChatSessionLifetime)) {
		t.Fatal("expected expiry exactly two hours after creation")
	}

	// Match is back-linked and a second resolve reuses the session
	var reloaded models.Match
	if err := db.First(&reloaded, match.ID).Error; err != nil {
		t.Fatalf("failed to reload match: %v", err)
	}
	if reloaded.ChatSessionID == nil || *reloaded.ChatSessionID != session.ID {
		t.Fatal("expected match back-linked to session")
	}

	again, err := controller.ResolveByMatch(match.ID)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if again.ID != session.ID {
		t.Fatalf("expected same session, got %d and %d", session.ID, again.ID)
	}
}

func TestResolveByMatchMissing(t *testing.T) {
	db := openTestDB(t)
	controller := NewChatSessionController(db, nil)

	if _, err := controller.ResolveByMatch(999); err != ErrMatchNotFound {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	if _, err := controller.ResolveByID(999); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestChatExpiryBoundary(t *testing.T) {
	db := openTestDB(t)
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := created
	controller := NewChatSessionController(db, func() time.Time { return now })

	match := seedMatch(t, db)
	session, err := controller.ResolveByMatch(match.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	now = created.Add(ChatSessionLifetime - time.Second)
	if controller.Expired(session) {
		t.Fatal("session expired one second early")
	}

	now = created.Add(ChatSessionLifetime)
	if !controller.Expired(session) {
		t.Fatal("session should be expired exactly at the deadline")
	}

	closed, err := controller.CloseIfExpired(session)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !closed {
		t.Fatal("expected expiry close to happen")
	}
	if session.Status != models.ChatStatusClosed || session.ClosedAt == nil {
		t.Fatal("expected closed status with timestamp")
	}

	// Closed is terminal; a second close is a no-op
	closedAgain, err := controller.CloseIfExpired(session)
	if err != nil {
		t.Fatalf("second close errored: %v", err)
	}
	if closedAgain {
		t.Fatal("close must happen exactly once")
	}
}

func TestSendMessageGuards(t *testing.T) {
	db := openTestDB(t)
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := created
	controller := NewChatSessionController(db, func() time.Time { return now })

	match := seedMatch(t, db)
	session, err := controller.ResolveByMatch(match.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	message, err := controller.SendMessage(session, 2, "  hello there ")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if message.Text != "hello there" {
		t.Fatalf("expected trimmed text, got %q", message.Text)
	}

	// Last-message cache updated
	reloaded, err := controller.ResolveByID(session.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.LastMessageText != "hello there" || reloaded.LastMessageAt == nil {
		t.Fatal("expected last-message cache refreshed")
	}

	if _, err := controller.SendMessage(session, 99, "hi"); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := controller.SendMessage(session, 1, "   "); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := controller.SendMessage(nil, 1, "hi"); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	// Past expiry the send is rejected and nothing is written
	now = created.Add(ChatSessionLifetime)
	if _, err := controller.SendMessage(session, 1, "too late"); err != ErrSessionClosed {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	var count int64
	db.Model(&models.ChatMessage{}).Where("chat_session_id = ?", session.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one stored message, got %d", count)
	}
}

func TestMarkRead(t *testing.T) {
	db := openTestDB(t)
	controller := NewChatSessionController(db, nil)

	match := seedMatch(t, db)
	session, err := controller.ResolveByMatch(match.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if _, err := controller.SendMessage(session, 1, "from owner"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, err := controller.SendMessage(session, 2, "from requester"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := controller.MarkRead(session, 2); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}

	var messages []models.ChatMessage
	db.Where("chat_session_id = ?", session.ID).Order("id").Find(&messages)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if !messages[0].Read {
		t.Fatal("other participant's message should be read")
	}
	if messages[1].Read {
		t.Fatal("viewer's own message must stay unread")
	}

	if err := controller.MarkRead(session, 42); err != ErrNotParticipant {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
}

func TestMonitorClosesExpiredSession(t *testing.T) {
	db := openTestDB(t)
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	controller := NewChatSessionController(db, fixedClock(created.Add(ChatSessionLifetime+time.Minute)))

	match := seedMatch(t, db)
	expiresAt := created.Add(ChatSessionLifetime)
	session := &models.ChatSession{
		MatchID: match.ID, DogID: 1, OwnerID: 1, RequesterID: 2,
		Status: models.ChatStatusActive, ExpiresAt: &expiresAt,
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	closed := make(chan struct{}, 1)
	controller.Monitor(session, func() {
		select {
		case closed <- struct{}{}:
		default:
		}
	})
	defer controller.StopMonitor()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not close the expired session")
	}

	var persisted models.ChatSession
	if err := db.First(&persisted, session.ID).Error; err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	if persisted.Status != models.ChatStatusClosed {
		t.Fatalf("expected persisted closed status, got %s", persisted.Status)
	}

	// Having closed the session the monitor cancels itself
	deadline := time.Now().Add(time.Second)
	for controller.monitor.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if controller.monitor.Running() {
		t.Fatal("expected the monitor to cancel itself after closing the session")
	}
}

func TestBackfillExpiry(t *testing.T) {
	db := openTestDB(t)
	controller := NewChatSessionController(db, nil)

	session := &models.ChatSession{MatchID: 1, DogID: 1, OwnerID: 1, RequesterID: 2, Status: models.ChatStatusActive}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}

	resolved, err := controller.ResolveByID(session.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ExpiresAt == nil {
		t.Fatal("expected expiry backfilled")
	}
	if !resolved.ExpiresAt.Equal(resolved.CreatedAt.Add(ChatSessionLifetime)) {
		t.Fatal("backfilled expiry must be CreatedAt plus the session lifetime")
	}

	// Idempotent: a second resolve reads the same value
	again, err := controller.ResolveByID(session.ID)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if !again.ExpiresAt.Equal(*resolved.ExpiresAt) {
		t.Fatal("backfill must not move the expiry")
	}
}
