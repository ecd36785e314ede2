package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/patient-portal/config"
	"github.com/redis/go-redis/v9"
)

// removeFromUserSetScript atomically removes a digest and deletes the set once empty.
const removeFromUserSetScript = `
	local removed = redis.call('SREM', KEYS[1], ARGV[1])
	if removed > 0 then
		local count = redis.call('SCARD', KEYS[1])
		if count == 0 then
			redis.call('DEL', KEYS[1])
		end
	end
	return removed
`

func sessionKey(digest string) string { return fmt.Sprintf("session:%s", digest) }

func userSessionsKey(email string) string { return fmt.Sprintf("user_sessions:%s", email) }

// StoreSession caches the digest -> email mapping for ttl and tracks the digest
// in the per-user set so every session of a user can be revoked at once.
// A nil Redis client makes this a no-op; the database stays authoritative.
func StoreSession(ctx context.Context, digest, email string, ttl time.Duration) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Set(ctx, sessionKey(digest), email, ttl).Err(); err != nil {
		return err
	}
	setKey := userSessionsKey(email)
	if err := rdb.SAdd(ctx, setKey, digest).Err(); err != nil {
		return err
	}
	// The set lives as long as the newest session added to it.
	return rdb.Expire(ctx, setKey, ttl).Err()
}

// LookupSession returns the email cached for a token digest. ok is false on a
// cache miss or when Redis is not configured.
func LookupSession(ctx context.Context, digest string) (email string, ok bool, err error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return "", false, nil
	}
	email, err = rdb.Get(ctx, sessionKey(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

// RemoveSession deletes one cached session and drops it from the user's set.
func RemoveSession(ctx context.Context, email, digest string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	if err := rdb.Del(ctx, sessionKey(digest)).Err(); err != nil {
		return err
	}
	return rdb.Eval(ctx, removeFromUserSetScript, []string{userSessionsKey(email)}, digest).Err()
}

// InvalidateUserSessions deletes all session:<digest> keys for the given user and
// removes the per-user set. Best-effort: it will return an error if Redis calls
// fail, but callers may choose to ignore it.
func InvalidateUserSessions(ctx context.Context, email string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return nil
	}
	setKey := userSessionsKey(email)
	members, err := rdb.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for _, digest := range members {
		_ = rdb.Del(ctx, sessionKey(digest)).Err()
	}
	return rdb.Del(ctx, setKey).Err()
}
