package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	refreshStatusUserNotFound int64 = 0
	refreshStatusNotActive    int64 = 1
	refreshStatusMismatch     int64 = 2
	refreshStatusRotated      int64 = 3
	refreshStatusSet          int64 = 4
)

// KEYS[1] profile key, KEYS[2] refresh key.
// ARGV[1] expected fingerprint, ARGV[2] next fingerprint, ARGV[3] ttl ms.
const rotateRefreshScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end

local current = redis.call("GET", KEYS[2])
if not current or current == "" then
  return 1
end
if current ~= ARGV[1] then
  return 2
end

local ttl = tonumber(ARGV[3])
if ttl > 0 then
  redis.call("SET", KEYS[2], ARGV[2], "PX", ttl)
else
  redis.call("SET", KEYS[2], ARGV[2])
end
return 3
`

// KEYS[1] profile key, KEYS[2] refresh key.
// ARGV[1] fingerprint (empty clears), ARGV[2] ttl ms.
const setRefreshScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end

if ARGV[1] == "" then
  redis.call("DEL", KEYS[2])
  return 4
end

local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call("SET", KEYS[2], ARGV[1], "PX", ttl)
else
  redis.call("SET", KEYS[2], ARGV[1])
end
return 4
`

const maxPutAttempts = 8

var (
	_ Store      = (*RedisStore)(nil)
	_ UserWriter = (*RedisStore)(nil)

	rotateRefreshLua = redis.NewScript(rotateRefreshScript)
	setRefreshLua    = redis.NewScript(setRefreshScript)
)

// RedisStore keeps user profiles and refresh fingerprints in Redis.
//
// Key layout under prefix p:
//
//	p:u:<subject>  profile blob (EncodeProfile)
//	p:e:<email>    subject id
//	p:rt:<subject> refresh fingerprint
//
// Refresh rotation runs as a Lua script so compare and replace execute as one
// Redis command.
type RedisStore struct {
	redis      redis.UniversalClient
	prefix     string
	refreshTTL time.Duration
}

// NewRedisStore creates a [RedisStore]. A positive refreshTTL expires the
// stored fingerprint together with the refresh token it describes.
func NewRedisStore(client redis.UniversalClient, prefix string, refreshTTL time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "gs"
	}
	return &RedisStore{
		redis:      client,
		prefix:     prefix,
		refreshTTL: refreshTTL,
	}
}

func (s *RedisStore) profileKey(subjectID string) string {
	return s.prefix + ":u:" + subjectID
}

func (s *RedisStore) emailKey(email string) string {
	return s.prefix + ":e:" + NormalizeEmail(email)
}

func (s *RedisStore) refreshKey(subjectID string) string {
	return s.prefix + ":rt:" + subjectID
}

// PutUser writes rec, its email index and its refresh fingerprint in one
// transaction. The profile and email keys are watched so a concurrent writer
// forces a retry; a changed email drops the old index entry.
func (s *RedisStore) PutUser(ctx context.Context, rec UserRecord) error {
	if rec.SubjectID == "" {
		return errors.New("subject id required")
	}
	data, err := EncodeProfile(rec)
	if err != nil {
		return err
	}

	profileKey := s.profileKey(rec.SubjectID)
	watched := []string{profileKey}
	var emailKey string
	if rec.Email != "" {
		emailKey = s.emailKey(rec.Email)
		watched = append(watched, emailKey)
	}

	put := func(tx *redis.Tx) error {
		if emailKey != "" {
			owner, err := tx.Get(ctx, emailKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil && owner != rec.SubjectID {
				return ErrEmailTaken
			}
		}

		var staleKey string
		prev, err := tx.Get(ctx, profileKey).Bytes()
		switch {
		case err == nil:
			if old, derr := DecodeProfile(prev); derr == nil && old.Email != "" {
				if k := s.emailKey(old.Email); k != emailKey {
					staleKey = k
				}
			}
		case !errors.Is(err, redis.Nil):
			return err
		}
		if staleKey != "" {
			if err := tx.Watch(ctx, staleKey).Err(); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profileKey, data, 0)
			if emailKey != "" {
				pipe.Set(ctx, emailKey, rec.SubjectID, 0)
			}
			if staleKey != "" {
				pipe.Del(ctx, staleKey)
			}
			if rec.RefreshTokenHash != "" {
				pipe.Set(ctx, s.refreshKey(rec.SubjectID), rec.RefreshTokenHash, s.refreshTTL)
			} else {
				pipe.Del(ctx, s.refreshKey(rec.SubjectID))
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		err := s.redis.Watch(ctx, put, watched...)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrEmailTaken):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return fmt.Errorf("%w: put user %s: too many concurrent writers", ErrStoreUnavailable, rec.SubjectID)
}

// DeleteUser removes the profile, email index and refresh fingerprint.
func (s *RedisStore) DeleteUser(ctx context.Context, subjectID string) error {
	rec, err := s.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	keys := []string{s.profileKey(subjectID), s.refreshKey(subjectID)}
	if rec.Email != "" {
		keys = append(keys, s.emailKey(rec.Email))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// FindByID reads the profile and refresh fingerprint in one pipeline.
func (s *RedisStore) FindByID(ctx context.Context, subjectID string) (UserRecord, error) {
	var profileCmd, refreshCmd *redis.StringCmd
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		profileCmd = pipe.Get(ctx, s.profileKey(subjectID))
		refreshCmd = pipe.Get(ctx, s.refreshKey(subjectID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	data, err := profileCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	rec, err := DecodeProfile(data)
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: corrupt profile: %v", ErrStoreUnavailable, err)
	}

	hash, err := refreshCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	rec.RefreshTokenHash = hash

	return rec, nil
}

// FindByEmail resolves the email index, then reads the profile.
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	subjectID, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.FindByID(ctx, subjectID)
}

// SetRefresh replaces the stored fingerprint unconditionally. The key is
// only written while the profile exists.
func (s *RedisStore) SetRefresh(ctx context.Context, subjectID, hash string) error {
	code, err := s.runScript(ctx, setRefreshLua, subjectID, hash, s.refreshTTL.Milliseconds())
	if err != nil {
		return err
	}
	switch code {
	case refreshStatusSet:
		return nil
	case refreshStatusUserNotFound:
		return ErrUserNotFound
	default:
		return fmt.Errorf("%w: unknown refresh script status %d", ErrStoreUnavailable, code)
	}
}

// CompareAndRotateRefresh swaps expected for next in one Lua script.
func (s *RedisStore) CompareAndRotateRefresh(ctx context.Context, subjectID, expected, next string) error {
	code, err := s.runScript(ctx, rotateRefreshLua, subjectID, expected, next, s.refreshTTL.Milliseconds())
	if err != nil {
		return err
	}
	switch code {
	case refreshStatusRotated:
		return nil
	case refreshStatusMismatch:
		return ErrRefreshMismatch
	case refreshStatusNotActive:
		return ErrRefreshNotActive
	case refreshStatusUserNotFound:
		return ErrUserNotFound
	default:
		return fmt.Errorf("%w: unknown refresh script status %d", ErrStoreUnavailable, code)
	}
}

// ClearRefresh deletes the refresh key.
func (s *RedisStore) ClearRefresh(ctx context.Context, subjectID string) error {
	return s.SetRefresh(ctx, subjectID, "")
}

// Ping reports round-trip latency to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *RedisStore) runScript(ctx context.Context, script *redis.Script, subjectID string, args ...interface{}) (int64, error) {
	code, err := script.Run(
		ctx,
		s.redis,
		[]string{s.profileKey(subjectID), s.refreshKey(subjectID)},
		args...,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return code, nil
}
