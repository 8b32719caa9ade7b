//go:build integration

package test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	itEmail    = "integration@example.com"
	itPassword = "integration-password"
)

// roundTrips is a go-redis hook counting network round-trips: one per
// command, one per pipeline.
type roundTrips struct {
	n atomic.Int64
}

func (h *roundTrips) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *roundTrips) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.n.Add(1)
		return next(ctx, cmd)
	}
}

func (h *roundTrips) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.n.Add(1)
		return next(ctx, cmds)
	}
}

func (h *roundTrips) Reset()       { h.n.Store(0) }
func (h *roundTrips) Count() int64 { return h.n.Load() }

type env struct {
	engine  *goSession.Engine
	store   *session.RedisStore
	counter *roundTrips
	subject string
}

// newRedisClient connects to REDIS_ADDR when set, otherwise to a fresh
// miniredis.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 32})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func newEnv(t *testing.T, mode goSession.ValidationMode) *env {
	t.Helper()
	rdb := newRedisClient(t)
	counter := &roundTrips{}
	rdb.AddHook(counter)

	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("integration-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("integration-refresh-secret-0123456789abcdef")
	cfg.Password = goSession.PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Store.Timeout = 2 * time.Second
	cfg.ValidationMode = mode

	// unique prefix so runs against a shared redis do not collide
	prefix := "gs-it-" + ulid.Make().String()
	store := session.NewRedisStore(rdb, prefix, cfg.JWT.RefreshTTL)

	ph, err := password.NewArgon2(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	hash, err := ph.Hash(itPassword)
	require.NoError(t, err)

	subject := "it-" + ulid.Make().String()
	require.NoError(t, store.PutUser(context.Background(), session.UserRecord{
		SubjectID:    subject,
		Email:        itEmail,
		PasswordHash: hash,
	}))
	t.Cleanup(func() { _ = store.DeleteUser(context.Background(), subject) })

	engine, err := goSession.New().WithConfig(cfg).WithStore(store).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &env{engine: engine, store: store, counter: counter, subject: subject}
}

type jar map[string]string

func (e *env) login(t *testing.T) jar {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := e.engine.Login(context.Background(), rec, itEmail, itPassword)
	require.NoError(t, err)
	return collect(jar{}, rec)
}

// collect merges response cookies into j; cleared cookies are removed.
func collect(j jar, rec *httptest.ResponseRecorder) jar {
	out := jar{}
	for k, v := range j {
		out[k] = v
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(out, c.Name)
			continue
		}
		out[c.Name] = c.Value
	}
	return out
}

func (j jar) request(method string) *http.Request {
	r := httptest.NewRequest(method, "/", nil)
	for name, value := range j {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if method != http.MethodGet {
		r.Header.Set("X-CSRF-Token", j[cookie.NameCSRF])
	}
	return r
}

func (j jar) without(name string) jar {
	out := jar{}
	for k, v := range j {
		if k != name {
			out[k] = v
		}
	}
	return out
}
