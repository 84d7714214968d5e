package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptTracker records in-progress attempts in Redis so every instance sees
// the same set. One hash per tournament, one field per user:
//
//	HSET tournament:{id}:attempts {userID} {startedAtMillis}:{expiresAtMillis}
type AttemptTracker struct {
	client *redis.Client
	clock  func() time.Time
}

func NewAttemptTracker(client *redis.Client) *AttemptTracker {
	return &AttemptTracker{client: client, clock: time.Now}
}

func (t *AttemptTracker) Begin(ctx context.Context, tournamentID, userID int64, now, expiresAt time.Time) (time.Time, error) {
	key := attemptsKey(tournamentID)
	field := strconv.FormatInt(userID, 10)
	value := encodeAttempt(now, expiresAt)

	created, err := t.client.HSetNX(ctx, key, field, value).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("track attempt: %w", err)
	}
	if !created {
		raw, err := t.client.HGet(ctx, key, field).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return time.Time{}, fmt.Errorf("read attempt: %w", err)
		}
		startedAt, expires, perr := decodeAttempt(raw)
		if perr == nil && expires.After(now) {
			return startedAt, nil
		}
		if err := t.client.HSet(ctx, key, field, value).Err(); err != nil {
			return time.Time{}, fmt.Errorf("track attempt: %w", err)
		}
	}

	// keep the hash alive as long as its latest attempt
	if ttl, err := t.client.PTTL(ctx, key).Result(); err == nil && ttl < time.Until(expiresAt) {
		_ = t.client.ExpireAt(ctx, key, expiresAt).Err()
	}
	return now, nil
}

func (t *AttemptTracker) End(ctx context.Context, tournamentID, userID int64) error {
	if err := t.client.HDel(ctx, attemptsKey(tournamentID), strconv.FormatInt(userID, 10)).Err(); err != nil {
		return fmt.Errorf("end attempt: %w", err)
	}
	return nil
}

// Active counts unexpired attempts and removes the expired ones.
func (t *AttemptTracker) Active(ctx context.Context, tournamentID int64) (int, error) {
	key := attemptsKey(tournamentID)
	entries, err := t.client.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("list attempts: %w", err)
	}
	now := t.clock()
	var stale []string
	for field, raw := range entries {
		if _, expires, err := decodeAttempt(raw); err != nil || !expires.After(now) {
			stale = append(stale, field)
		}
	}
	if len(stale) > 0 {
		_ = t.client.HDel(ctx, key, stale...).Err()
	}
	return len(entries) - len(stale), nil
}

func attemptsKey(tournamentID int64) string {
	return "tournament:" + strconv.FormatInt(tournamentID, 10) + ":attempts"
}

func encodeAttempt(startedAt, expiresAt time.Time) string {
	return strconv.FormatInt(startedAt.UnixMilli(), 10) + ":" + strconv.FormatInt(expiresAt.UnixMilli(), 10)
}

func decodeAttempt(raw string) (time.Time, time.Time, error) {
	started, expires, ok := strings.Cut(raw, ":")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed attempt entry %q", raw)
	}
	s, err := strconv.ParseInt(started, 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return time.UnixMilli(s), time.UnixMilli(e), nil
}
