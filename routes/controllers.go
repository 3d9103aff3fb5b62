package routes

import (
	"context"

	"pawmatching-server/services"
	"pawmatching-server/storage"

	"gorm.io/gorm"
)

// presenceLister is the read side of the walking presence mirror. The
// discovery handler prefers it over the dogs table when available.
type presenceLister interface {
	List(ctx context.Context) ([]storage.WalkingPresence, error)
}

// Shared controllers behind the handlers. Initialize wires them once at
// startup; tests wire them against an in-memory database instead.
var (
	walking  *services.WalkingController
	chats    *services.ChatSessionController
	matching *services.MatchingWorkflow
	presence presenceLister
)

func Initialize(db *gorm.DB, mirror services.PresenceStore) {
	walking = services.NewWalkingController(db, mirror, nil)
	chats = services.NewChatSessionController(db, nil)
	matching = services.NewMatchingWorkflow(db, nil)

	presence = nil
	if lister, ok := mirror.(presenceLister); ok {
		presence = lister
	}
}
