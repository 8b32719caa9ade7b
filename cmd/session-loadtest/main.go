// Command session-loadtest drives an Engine over Redis (or an embedded
// miniredis) and reports authenticate and rotation latency. The rotation
// phase replays each refresh cookie from several goroutines at once and
// fails when any session ends up with more than one winner.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const loadPassword = "loadtest-password"

type client struct {
	access, refresh, csrf string
}

func (c client) request() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c.access != "" {
		r.AddCookie(&http.Cookie{Name: cookie.NameAccess, Value: c.access})
	}
	r.AddCookie(&http.Cookie{Name: cookie.NameRefresh, Value: c.refresh})
	r.AddCookie(&http.Cookie{Name: cookie.NameCSRF, Value: c.csrf})
	return r
}

func main() {
	var (
		users       = flag.Int("users", 2000, "number of users to seed and log in")
		concurrency = flag.Int("concurrency", 128, "concurrent workers in the authenticate phase")
		ops         = flag.Int("ops", 100000, "authenticate operations")
		racers      = flag.Int("racers", 8, "goroutines replaying each refresh cookie in the rotation phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gs-load", "redis key prefix")
		verbose     = flag.Bool("v", false, "log engine warnings")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 1 {
		fmt.Fprintln(os.Stderr, "users, concurrency and ops must be > 0, racers > 1")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer rdb.Close()

	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret-0123456789abcdef")
	cfg.Password = goSession.PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Metrics.Enabled = true

	store := session.NewRedisStore(rdb, *prefix, cfg.JWT.RefreshTTL)

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	}
	engine, err := goSession.New().WithConfig(cfg).WithStore(store).WithLogger(logger).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	fmt.Printf("seeding and logging in %d users...\n", *users)
	start := time.Now()
	clients, err := seed(ctx, engine, store, cfg, *users)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))

	authStats := runAuthenticatePhase(engine, clients, *ops, *concurrency)
	rotateStats, doubleWins := runRotationPhase(engine, clients, *racers)

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("rotate-race", rotateStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("refresh_success=%d reuse_detected=%d store_failure=%d\n",
		snap.Counters[goSession.MetricRefreshSuccess],
		snap.Counters[goSession.MetricRefreshReuseDetected],
		snap.Counters[goSession.MetricStoreFailure],
	)
	if doubleWins > 0 {
		fmt.Fprintf(os.Stderr, "FAIL: %d sessions rotated more than once from one refresh token\n", doubleWins)
		os.Exit(1)
	}
}

func seed(ctx context.Context, engine *goSession.Engine, store *session.RedisStore, cfg goSession.Config, n int) ([]client, error) {
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	hash, err := ph.Hash(loadPassword)
	if err != nil {
		return nil, err
	}

	clients := make([]client, n)
	for i := range clients {
		email := fmt.Sprintf("user-%d@load.test", i)
		if err := store.PutUser(ctx, session.UserRecord{
			SubjectID:    fmt.Sprintf("user-%d", i),
			Email:        email,
			PasswordHash: hash,
		}); err != nil {
			return nil, err
		}

		rec := httptest.NewRecorder()
		if _, err := engine.Login(ctx, rec, email, loadPassword); err != nil {
			return nil, fmt.Errorf("login %s: %w", email, err)
		}
		for _, c := range rec.Result().Cookies() {
			switch c.Name {
			case cookie.NameAccess:
				clients[i].access = c.Value
			case cookie.NameRefresh:
				clients[i].refresh = c.Value
			case cookie.NameCSRF:
				clients[i].csrf = c.Value
			}
		}
	}
	return clients, nil
}

func runAuthenticatePhase(engine *goSession.Engine, clients []client, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for atomic.AddInt64(&cursor, 1) <= int64(ops) {
				c := clients[r.Intn(len(clients))]
				t0 := time.Now()
				_, err := engine.Authenticate(httptest.NewRecorder(), c.request())
				local = append(local, time.Since(t0))
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runRotationPhase drops every client's access cookie so each request
// renews, then fires racers identical requests per client at once.
// A "failure" here is an expected loser; doubleWins counts sessions with
// more than one successful rotation.
func runRotationPhase(engine *goSession.Engine, clients []client, racers int) (phaseStats, int) {
	var (
		mu         sync.Mutex
		latencies  = make([]time.Duration, 0, len(clients)*racers)
		losers     int64
		doubleWins int
	)

	start := time.Now()
	for _, c := range clients {
		c.access = ""
		var (
			wg   sync.WaitGroup
			wins int64
			gate = make(chan struct{})
		)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req := c.request()
				<-gate
				t0 := time.Now()
				_, err := engine.Authenticate(httptest.NewRecorder(), req)
				d := time.Since(t0)
				switch {
				case err == nil:
					atomic.AddInt64(&wins, 1)
				case errors.Is(err, goSession.ErrRefreshReuseDetected), errors.Is(err, goSession.ErrSessionExpired):
					atomic.AddInt64(&losers, 1)
				default:
					fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		close(gate)
		wg.Wait()
		if wins > 1 {
			doubleWins++
		}
	}
	return computeStats(time.Since(start), latencies, losers), doubleWins
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
