package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Walking presence is the low-latency mirror of a walking dog's coordinate,
// kept in Redis separately from the dog row in Postgres. The duplication is
// deliberate: proximity reads hit Redis only. Entries carry a TTL equal to
// the walking budget so an abandoned session stops being discoverable on its
// own.

const walkingKeyPrefix = "dog:walking:"

type WalkingPresence struct {
	DogID     uint      `json:"dogID"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func walkingKey(dogID uint) string {
	return walkingKeyPrefix + strconv.FormatUint(uint64(dogID), 10)
}

// RedisPresence mirrors walking coordinates through the shared Redis client.
type RedisPresence struct{}

func (RedisPresence) Set(ctx context.Context, dogID uint, lat, lng float64, ttl time.Duration) error {
	entry := WalkingPresence{DogID: dogID, Latitude: lat, Longitude: lng, UpdatedAt: time.Now()}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, walkingKey(dogID), payload, ttl).Err()
}

func (RedisPresence) Clear(ctx context.Context, dogID uint) error {
	return Redis.Del(ctx, walkingKey(dogID)).Err()
}

// List scans the walking keyspace and decodes every live entry. Entries that
// fail to decode are skipped, not surfaced: the mirror is a best-effort cache.
func (RedisPresence) List(ctx context.Context) ([]WalkingPresence, error) {
	var entries []WalkingPresence
	iter := Redis.Scan(ctx, 0, walkingKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := Redis.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var entry WalkingPresence
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			continue
		}
		if entry.DogID == 0 {
			// Older entries keyed the ID only in the key path
			if id, parseErr := strconv.ParseUint(strings.TrimPrefix(iter.Val(), walkingKeyPrefix), 10, 32); parseErr == nil {
				entry.DogID = uint(id)
			}
		}
		entries = append(entries, entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan walking presence: %w", err)
	}
	return entries, nil
}
