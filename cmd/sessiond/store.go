package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/session/sqlite"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// backend is the selected session store plus what the server needs beyond
// session.Store: seeding, health checks and shutdown.
type backend struct {
	store session.Store
	seed  func(ctx context.Context, rec session.UserRecord) error
	ping  func(ctx context.Context) error
	close func()
}

func openBackend(s settings) (*backend, error) {
	switch s.Store {
	case "memory":
		m := session.NewMemoryStore()
		return &backend{
			store: m,
			seed:  func(_ context.Context, rec session.UserRecord) error { return m.Put(rec) },
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil

	case "redis":
		return openRedis(s)

	case "sqlite":
		db, err := sqlite.NewStore(s.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return &backend{
			store: db,
			seed: func(ctx context.Context, rec session.UserRecord) error {
				if _, err := db.FindByEmail(ctx, rec.Email); err == nil {
					return nil
				} else if !errors.Is(err, session.ErrUserNotFound) {
					return err
				}
				_, err := db.CreateUser(ctx, rec)
				return err
			},
			ping:  db.Ping,
			close: func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", s.Store)
	}
}

// openRedis connects to REDIS_ADDR, or starts an embedded miniredis when it
// is unset.
func openRedis(s settings) (*backend, error) {
	addr := s.RedisAddr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		log.Warn().Str("addr", addr).Msg("REDIS_ADDR unset, using embedded miniredis")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	rs := session.NewRedisStore(client, s.RedisPrefix, s.RefreshTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rtt, err := rs.Ping(ctx)
	if err != nil {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", addr).Dur("rtt", rtt).Msg("redis connected")

	return &backend{
		store: rs,
		seed:  rs.PutUser,
		ping: func(ctx context.Context) error {
			_, err := rs.Ping(ctx)
			return err
		},
		close: func() {
			_ = client.Close()
			if mr != nil {
				mr.Close()
			}
		},
	}, nil
}
