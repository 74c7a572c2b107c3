// Package sessions deduplicates visitors without cookies. A session is keyed
// by a one-way keyed hash of (client IP, user agent); neither value is ever
// stored in the clear. The session record lives in redis with an absolute
// TTL that is rewritten in full on every write, not extended incrementally.
package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the absolute session lifetime.
const DefaultTTL = 8 * time.Hour

// Tracker resolves first-visit state for incoming hits.
type Tracker struct {
	client *redis.Client
	secret string
	ttl    time.Duration
	logger *slog.Logger
}

// Resolution is the outcome of resolving a hit against its session.
type Resolution struct {
	SessionID  string
	Hash       string
	FirstVisit bool
}

type record struct {
	ID        string    `json:"id"`
	Paths     []uint    `json:"paths"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTracker creates a tracker backed by a redis connection.
func NewTracker(addr, password string, db int, secret string, ttl time.Duration, logger *slog.Logger) *Tracker {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewTrackerWithClient(client, secret, ttl, logger)
}

// NewTrackerWithClient creates a tracker with an injected client, used by
// tests to point at a miniredis instance.
func NewTrackerWithClient(client *redis.Client, secret string, ttl time.Duration, logger *slog.Logger) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		client: client,
		secret: secret,
		ttl:    ttl,
		logger: logger,
	}
}

// Hash computes the one-way session key for an (IP, user agent) pair.
func (t *Tracker) Hash(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(t.secret + "|" + ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

// Resolve looks up the session for a hit and determines whether this is the
// first visit to pathID within it. Creating a session and appending a new
// path both rewrite the full TTL; a repeat visit leaves the record and its
// expiry untouched.
func (t *Tracker) Resolve(ctx context.Context, ip, userAgent string, pathID uint) (Resolution, error) {
	hash := t.Hash(ip, userAgent)

	raw, err := t.client.Get(ctx, hash).Result()
	if err == redis.Nil {
		rec := record{
			ID:        uuid.NewString(),
			Paths:     []uint{pathID},
			CreatedAt: time.Now().UTC(),
		}
		if err := t.persist(ctx, hash, rec); err != nil {
			return Resolution{}, err
		}
		return Resolution{SessionID: rec.ID, Hash: hash, FirstVisit: true}, nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to load session: %w", err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.logger.Warn("discarding corrupt session record", "hash", hash, "error", err)
		rec = record{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	}

	for _, seen := range rec.Paths {
		if seen == pathID {
			return Resolution{SessionID: rec.ID, Hash: hash, FirstVisit: false}, nil
		}
	}

	rec.Paths = append(rec.Paths, pathID)
	if err := t.persist(ctx, hash, rec); err != nil {
		return Resolution{}, err
	}
	return Resolution{SessionID: rec.ID, Hash: hash, FirstVisit: true}, nil
}

func (t *Tracker) persist(ctx context.Context, hash string, rec record) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := t.client.Set(ctx, hash, encoded, t.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Close releases the underlying redis connection.
func (t *Tracker) Close() error {
	return t.client.Close()
}
