package sessions

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*Tracker, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewTrackerWithClient(client, "test-secret", time.Hour, logger), s
}

func TestResolveFirstVisitSequence(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	const pathA, pathB = uint(10), uint(20)
	sequence := []uint{pathA, pathA, pathB, pathA}
	want := []bool{true, false, true, false}

	var sessionID string
	for i, pathID := range sequence {
		res, err := tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", pathID)
		require.NoError(t, err)
		assert.Equal(t, want[i], res.FirstVisit, "hit %d", i)

		if sessionID == "" {
			sessionID = res.SessionID
		} else {
			assert.Equal(t, sessionID, res.SessionID, "session id must be stable")
		}
	}
}

func TestResolveDistinctClientsGetDistinctSessions(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", 1)
	require.NoError(t, err)
	second, err := tracker.Resolve(ctx, "203.0.113.8", "Mozilla/5.0 Test", 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.Hash, second.Hash)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.True(t, second.FirstVisit)
}

func TestResolveHashHidesClientData(t *testing.T) {
	tracker, _ := newTestTracker(t)

	hash := tracker.Hash("203.0.113.7", "Mozilla/5.0 Test")
	assert.Len(t, hash, 64)
	assert.NotContains(t, hash, "203.0.113.7")
	assert.False(t, strings.Contains(hash, "Mozilla"))
}

func TestResolveRewritesTTLOnWrite(t *testing.T) {
	tracker, s := newTestTracker(t)
	ctx := context.Background()

	res, err := tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", 1)
	require.NoError(t, err)

	// Burn half the TTL, then trigger a write by visiting a new path. The
	// expiry must be rewritten to the full hour.
	s.FastForward(30 * time.Minute)
	_, err = tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", 2)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.TTL(res.Hash))

	// A repeat visit is read-only and must not touch the expiry.
	s.FastForward(30 * time.Minute)
	repeat, err := tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", 2)
	require.NoError(t, err)
	assert.False(t, repeat.FirstVisit)
	assert.Equal(t, 30*time.Minute, s.TTL(res.Hash))
}

func TestResolveExpiredSessionStartsFresh(t *testing.T) {
	tracker, s := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", 1)
	require.NoError(t, err)

	s.FastForward(2 * time.Hour)

	second, err := tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", 1)
	require.NoError(t, err)
	assert.True(t, second.FirstVisit)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestResolveCorruptRecordRecovers(t *testing.T) {
	tracker, s := newTestTracker(t)
	ctx := context.Background()

	hash := tracker.Hash("203.0.113.7", "Mozilla/5.0 Test")
	require.NoError(t, s.Set(hash, "not json"))

	res, err := tracker.Resolve(ctx, "203.0.113.7", "Mozilla/5.0 Test", 1)
	require.NoError(t, err)
	assert.True(t, res.FirstVisit)
	assert.NotEmpty(t, res.SessionID)
}
