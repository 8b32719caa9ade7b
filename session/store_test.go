package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/session/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, refreshTTL time.Duration) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return session.NewRedisStore(rdb, "gs", refreshTTL), mr
}

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, users ...session.UserRecord) session.Store {
		st := session.NewMemoryStore()
		for _, u := range users {
			if err := st.Put(u); err != nil {
				t.Fatalf("put: %v", err)
			}
		}
		return st
	})
}

func TestRedisStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, users ...session.UserRecord) session.Store {
		st, _ := newRedisStore(t, 0)
		for _, u := range users {
			if err := st.PutUser(context.Background(), u); err != nil {
				t.Fatalf("put: %v", err)
			}
		}
		return st
	})
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	st := session.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := st.FindByID(ctx, "x"); !errors.Is(err, session.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	st := session.NewMemoryStore()
	if err := st.Put(storetest.Alice()); err != nil {
		t.Fatalf("put: %v", err)
	}
	st.Delete(storetest.Alice().SubjectID)

	if _, err := st.FindByEmail(context.Background(), storetest.Alice().Email); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("expected email index removed, got %v", err)
	}
}

func TestRedisRefreshFingerprintExpires(t *testing.T) {
	st, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()
	alice := storetest.Alice()
	if err := st.PutUser(ctx, alice); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.CompareAndRotateRefresh(ctx, alice.SubjectID, "fp-0", "fp-1"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if ttl := mr.TTL("gs:rt:" + alice.SubjectID); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected refresh ttl set by rotation, got %s", ttl)
	}

	mr.FastForward(time.Hour + time.Second)
	if err := st.CompareAndRotateRefresh(ctx, alice.SubjectID, "fp-1", "fp-2"); !errors.Is(err, session.ErrRefreshNotActive) {
		t.Fatalf("expected ErrRefreshNotActive after ttl, got %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	st, mr := newRedisStore(t, 0)
	if err := st.PutUser(context.Background(), storetest.Alice()); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.Close()

	err := st.CompareAndRotateRefresh(context.Background(), storetest.Alice().SubjectID, "fp-0", "fp-1")
	if !errors.Is(err, session.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := st.FindByID(context.Background(), storetest.Alice().SubjectID); !errors.Is(err, session.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRedisDeleteUser(t *testing.T) {
	st, mr := newRedisStore(t, 0)
	ctx := context.Background()
	alice := storetest.Alice()
	if err := st.PutUser(ctx, alice); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.DeleteUser(ctx, alice.SubjectID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteUser(ctx, alice.SubjectID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys left, got %v", keys)
	}
}

func TestRedisEmailChangeDropsOldIndex(t *testing.T) {
	st, mr := newRedisStore(t, 0)
	ctx := context.Background()
	alice := storetest.Alice()
	if err := st.PutUser(ctx, alice); err != nil {
		t.Fatalf("put: %v", err)
	}

	alice.Email = "alice@new.example.com"
	if err := st.PutUser(ctx, alice); err != nil {
		t.Fatalf("change email: %v", err)
	}
	if mr.Exists("gs:e:alice@example.com") {
		t.Fatal("old email index must be deleted")
	}
	if got, _ := mr.Get("gs:e:alice@new.example.com"); got != alice.SubjectID {
		t.Fatalf("new email index points at %q", got)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	rec := storetest.Alice()
	rec.RefreshTokenHash = ""

	data, err := session.EncodeProfile(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := session.DecodeProfile(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != rec {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := session.DecodeProfile(append(data, 0)); err == nil {
		t.Fatal("expected trailing bytes rejected")
	}
	if _, err := session.DecodeProfile(data[:len(data)-1]); err == nil {
		t.Fatal("expected truncated profile rejected")
	}
}

func TestProfileLongFields(t *testing.T) {
	rec := storetest.Alice()
	rec.RefreshTokenHash = ""
	rec.DisplayName = strings.Repeat("Zoë ", 200)
	rec.Email = strings.Repeat("a", 300) + "@example.com"

	data, err := session.EncodeProfile(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := session.DecodeProfile(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != rec {
		t.Fatal("long fields must round trip")
	}

	rec.DisplayName = strings.Repeat("x", 0x10000)
	if _, err := session.EncodeProfile(rec); err == nil {
		t.Fatal("expected oversized field rejected")
	}
}
