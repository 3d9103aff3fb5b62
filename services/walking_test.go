package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"pawmatching-server/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Dog{},
		&models.PettingRequest{},
		&models.Match{},
		&models.ChatSession{},
		&models.ChatMessage{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

type fakePresence struct {
	sets   []uint
	clears []uint
	ttl    time.Duration
}

func (f *fakePresence) Set(_ context.Context, dogID uint, lat, lng float64, ttl time.Duration) error {
	f.sets = append(f.sets, dogID)
	f.ttl = ttl
	return nil
}

func (f *fakePresence) Clear(_ context.Context, dogID uint) error {
	f.clears = append(f.clears, dogID)
	return nil
}

func seedDog(t *testing.T, db *gorm.DB, ownerID uint) *models.Dog {
	t.Helper()
	dog := &models.Dog{OwnerID: ownerID, Name: "Rex", Sex: "male", Age: 3}
	if err := db.Create(dog).Error; err != nil {
		t.Fatalf("failed to seed dog: %v", err)
	}
	return dog
}

func TestWalkingStartStop(t *testing.T) {
	db := openTestDB(t)
	presence := &fakePresence{}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	controller := NewWalkingController(db, presence, fixedClock(now))

	dog := seedDog(t, db, 1)
	lat, lng := 40.7128, -74.0060

	started, err := controller.Start(context.Background(), dog.ID, 1, &lat, &lng)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !started.IsWalking {
		t.Fatal("expected dog to be walking")
	}
	if started.Latitude == nil || *started.Latitude != lat {
		t.Fatal("expected coordinate stamped on start")
	}
	if started.LastWalkingStatusUpdate == nil || !started.LastWalkingStatusUpdate.Equal(now) {
		t.Fatal("expected status timestamp stamped on start")
	}
	if len(presence.sets) != 1 || presence.sets[0] != dog.ID {
		t.Fatal("expected presence mirror set on start")
	}
	if presence.ttl != WalkingBudget {
		t.Fatalf("expected presence TTL equal to walking budget, got %v", presence.ttl)
	}
	if !controller.TimerRunning(dog.ID) {
		t.Fatal("expected budget timer running after start")
	}

	var persisted models.Dog
	if err := db.First(&persisted, dog.ID).Error; err != nil {
		t.Fatalf("failed to reload dog: %v", err)
	}
	if !persisted.IsWalking {
		t.Fatal("walking flag not persisted")
	}

	stopped, err := controller.Stop(context.Background(), dog.ID, 1, &lat, &lng)
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if stopped.IsWalking {
		t.Fatal("expected dog to be idle after stop")
	}
	if len(presence.clears) != 1 || presence.clears[0] != dog.ID {
		t.Fatal("expected presence mirror cleared on stop")
	}
	if controller.TimerRunning(dog.ID) {
		t.Fatal("expected budget timer stopped after stop")
	}
}

func TestWalkingStartRequiresLocation(t *testing.T) {
	db := openTestDB(t)
	controller := NewWalkingController(db, &fakePresence{}, nil)

	dog := seedDog(t, db, 1)
	lat := 40.7128

	if _, err := controller.Start(context.Background(), dog.ID, 1, nil, nil); err != ErrLocationUnavailable {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
	if _, err := controller.Start(context.Background(), dog.ID, 1, &lat, nil); err != ErrLocationUnavailable {
		t.Fatalf("expected ErrLocationUnavailable for partial coordinate, got %v", err)
	}

	var persisted models.Dog
	db.First(&persisted, dog.ID)
	if persisted.IsWalking {
		t.Fatal("failed start must not change walking state")
	}
}

func TestWalkingOwnershipEnforced(t *testing.T) {
	db := openTestDB(t)
	controller := NewWalkingController(db, &fakePresence{}, nil)

	dog := seedDog(t, db, 1)
	lat, lng := 40.7128, -74.0060

	if _, err := controller.Start(context.Background(), dog.ID, 2, &lat, &lng); err != ErrNotDogOwner {
		t.Fatalf("expected ErrNotDogOwner, got %v", err)
	}
	if _, err := controller.Start(context.Background(), 9999, 1, &lat, &lng); err != ErrDogNotFound {
		t.Fatalf("expected ErrDogNotFound, got %v", err)
	}
}

func TestWalkingDoubleStartKeepsOneTimer(t *testing.T) {
	db := openTestDB(t)
	controller := NewWalkingController(db, &fakePresence{}, nil)

	dog := seedDog(t, db, 1)
	lat, lng := 40.7128, -74.0060

	if _, err := controller.Start(context.Background(), dog.ID, 1, &lat, &lng); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if _, err := controller.Start(context.Background(), dog.ID, 1, &lat, &lng); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if !controller.TimerRunning(dog.ID) {
		t.Fatal("expected a running timer after restart")
	}

	if _, err := controller.Stop(context.Background(), dog.ID, 1, &lat, &lng); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if controller.TimerRunning(dog.ID) {
		t.Fatal("expected no timer after stop")
	}
}

func TestWalkingTimerCancelsAfterBudget(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	now := start
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	controller := NewWalkingController(db, &fakePresence{}, clock)
	controller.tick = 2 * time.Millisecond

	dog := seedDog(t, db, 1)
	lat, lng := 40.7128, -74.0060
	if _, err := controller.Start(context.Background(), dog.ID, 1, &lat, &lng); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !controller.TimerRunning(dog.ID) {
		t.Fatal("expected budget timer running after start")
	}

	// The budget elapses without an explicit stop from the owner
	mu.Lock()
	now = start.Add(WalkingBudget)
	mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for controller.TimerRunning(dog.ID) && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if controller.TimerRunning(dog.ID) {
		t.Fatal("expected the budget timer to cancel itself after expiry")
	}

	controller.mu.Lock()
	_, tracked := controller.timers[dog.ID]
	controller.mu.Unlock()
	if tracked {
		t.Fatal("expected the expired timer dropped from tracking")
	}
}

func TestWalkingRemaining(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	now := start
	controller := NewWalkingController(db, &fakePresence{}, func() time.Time { return now })

	dog := seedDog(t, db, 1)
	lat, lng := 40.7128, -74.0060
	walkingDog, err := controller.Start(context.Background(), dog.ID, 1, &lat, &lng)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if got := controller.Remaining(walkingDog); got != WalkingBudget {
		t.Fatalf("expected full budget at start, got %v", got)
	}

	now = start.Add(45 * time.Minute)
	if got := controller.Remaining(walkingDog); got != 15*time.Minute {
		t.Fatalf("expected 15m remaining, got %v", got)
	}

	now = start.Add(2 * time.Hour)
	if got := controller.Remaining(walkingDog); got != 0 {
		t.Fatalf("expected 0 remaining past budget, got %v", got)
	}

	idle := &models.Dog{}
	if got := controller.Remaining(idle); got != 0 {
		t.Fatalf("expected 0 remaining for idle dog, got %v", got)
	}
}
