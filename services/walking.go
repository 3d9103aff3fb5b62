package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"pawmatching-server/models"

	"gorm.io/gorm"
)

// WalkingBudget is the fixed length of one walking session.
const WalkingBudget = 60 * time.Minute

// walkingTickInterval is how often a live session re-derives its remaining
// time.
const walkingTickInterval = 30 * time.Second

var (
	ErrLocationUnavailable = errors.New("current location is unavailable")
	ErrNotDogOwner         = errors.New("only the dog's owner can change its walking state")
	ErrDogNotFound         = errors.New("dog not found")
)

// PresenceStore is the low-latency mirror of walking coordinates, read by
// other users' proximity searches.
type PresenceStore interface {
	Set(ctx context.Context, dogID uint, lat, lng float64, ttl time.Duration) error
	Clear(ctx context.Context, dogID uint) error
}

// WalkingController toggles a dog between idle and walking. Starting a walk
// stamps the dog row, mirrors the coordinate to the presence store and starts
// the 60-minute budget timer; stopping reverses both. The dog row in Postgres
// and the presence mirror are independently, eventually consistent: mirror
// failures are logged and swallowed, primary failures abort the transition.
type WalkingController struct {
	db     *gorm.DB
	mirror PresenceStore
	clock  Clock
	tick   time.Duration

	// Delivered every tick of a live session, if set.
	OnTick func(dogID uint, remaining time.Duration)

	mu     sync.Mutex
	timers map[uint]*SessionTimer
}

func NewWalkingController(db *gorm.DB, mirror PresenceStore, clock Clock) *WalkingController {
	if clock == nil {
		clock = time.Now
	}
	return &WalkingController{
		db:     db,
		mirror: mirror,
		clock:  clock,
		tick:   walkingTickInterval,
		timers: make(map[uint]*SessionTimer),
	}
}

// Start transitions a dog idle -> walking. The caller must supply a current
// coordinate; without one the transition fails with no state change.
func (c *WalkingController) Start(ctx context.Context, dogID uint, ownerID uint, lat, lng *float64) (*models.Dog, error) {
	if lat == nil || lng == nil {
		return nil, ErrLocationUnavailable
	}

	dog, err := c.loadOwnedDog(dogID, ownerID)
	if err != nil {
		return nil, err
	}

	now := c.clock()
	updates := map[string]interface{}{
		"is_walking":                 true,
		"last_walking_status_update": now,
		"latitude":                   *lat,
		"longitude":                  *lng,
	}
	if err := c.db.Model(dog).Updates(updates).Error; err != nil {
		return nil, err
	}
	dog.IsWalking = true
	dog.LastWalkingStatusUpdate = &now
	dog.Latitude = lat
	dog.Longitude = lng

	// Best-effort mirror; the TTL doubles as the unattended-session sweep.
	if c.mirror != nil {
		if err := c.mirror.Set(ctx, dogID, *lat, *lng, WalkingBudget); err != nil {
			log.Printf("walking: presence mirror set failed for dog %d: %v", dogID, err)
		}
	}

	c.startTimer(dogID, now)
	return dog, nil
}

// Stop transitions a dog walking -> idle, stamping the final coordinate when
// one is supplied.
func (c *WalkingController) Stop(ctx context.Context, dogID uint, ownerID uint, lat, lng *float64) (*models.Dog, error) {
	if lat == nil || lng == nil {
		return nil, ErrLocationUnavailable
	}

	dog, err := c.loadOwnedDog(dogID, ownerID)
	if err != nil {
		return nil, err
	}

	now := c.clock()
	updates := map[string]interface{}{
		"is_walking":                 false,
		"last_walking_status_update": now,
		"latitude":                   *lat,
		"longitude":                  *lng,
	}
	if err := c.db.Model(dog).Updates(updates).Error; err != nil {
		return nil, err
	}
	dog.IsWalking = false
	dog.LastWalkingStatusUpdate = &now
	dog.Latitude = lat
	dog.Longitude = lng

	if c.mirror != nil {
		if err := c.mirror.Clear(ctx, dogID); err != nil {
			log.Printf("walking: presence mirror clear failed for dog %d: %v", dogID, err)
		}
	}

	c.stopTimer(dogID)
	return dog, nil
}

// Remaining derives the walking time left from the dog's last status stamp,
// fresh on every call. Zero remaining does not force the dog back to idle;
// the presence mirror's TTL handles unattended sessions.
func (c *WalkingController) Remaining(dog *models.Dog) time.Duration {
	if !dog.IsWalking || dog.LastWalkingStatusUpdate == nil {
		return 0
	}
	elapsed := c.clock().Sub(*dog.LastWalkingStatusUpdate)
	if elapsed >= WalkingBudget {
		return 0
	}
	return WalkingBudget - elapsed
}

// TimerRunning reports whether a budget timer is live for the dog.
func (c *WalkingController) TimerRunning(dogID uint) bool {
	c.mu.Lock()
	timer := c.timers[dogID]
	c.mu.Unlock()
	return timer != nil && timer.Running()
}

func (c *WalkingController) startTimer(dogID uint, start time.Time) {
	c.mu.Lock()
	if previous := c.timers[dogID]; previous != nil {
		previous.Stop()
	}
	timer := NewSessionTimer(start, WalkingBudget, c.clock)
	c.timers[dogID] = timer
	c.mu.Unlock()

	timer.Run(c.tick, func(remaining time.Duration, expired bool) {
		if c.OnTick != nil {
			c.OnTick(dogID, remaining)
		}
		if !expired {
			return
		}
		// The budget has elapsed; the final expired tick is the last one with
		// anything to derive.
		timer.Stop()
		c.mu.Lock()
		if c.timers[dogID] == timer {
			delete(c.timers, dogID)
		}
		c.mu.Unlock()
	})
}

func (c *WalkingController) stopTimer(dogID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timer := c.timers[dogID]; timer != nil {
		timer.Stop()
		delete(c.timers, dogID)
	}
}

func (c *WalkingController) loadOwnedDog(dogID uint, ownerID uint) (*models.Dog, error) {
	var dog models.Dog
	if err := c.db.First(&dog, dogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDogNotFound
		}
		return nil, err
	}
	if dog.OwnerID != ownerID {
		return nil, ErrNotDogOwner
	}
	return &dog, nil
}
