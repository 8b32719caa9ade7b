// Package storetest holds behavior tests shared by every session.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/goSession/session"
)

// Factory returns a fresh store seeded with users.
type Factory func(t *testing.T, users ...session.UserRecord) session.Store

// Alice is the default seeded user.
func Alice() session.UserRecord {
	return session.UserRecord{
		SubjectID:        "user-alice",
		Email:            "Alice@Example.com",
		DisplayName:      "Alice",
		PasswordHash:     "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		RefreshTokenHash: "fp-0",
	}
}

// Run executes the shared store behavior suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("FindByID", func(t *testing.T) { testFindByID(t, newStore) })
	t.Run("FindByEmail", func(t *testing.T) { testFindByEmail(t, newStore) })
	t.Run("RotateSequence", func(t *testing.T) { testRotateSequence(t, newStore) })
	t.Run("RotateAfterClear", func(t *testing.T) { testRotateAfterClear(t, newStore) })
	t.Run("UnknownUser", func(t *testing.T) { testUnknownUser(t, newStore) })
	t.Run("ConcurrentRotateSingleWinner", func(t *testing.T) { testConcurrentRotate(t, newStore) })
	t.Run("EmailChangeReleasesOldAddress", func(t *testing.T) { testEmailChange(t, newStore) })
	t.Run("EmailOwnedByAnotherSubject", func(t *testing.T) { testEmailTaken(t, newStore) })
	t.Run("LongProfileFields", func(t *testing.T) { testLongFields(t, newStore) })
}

func writer(t *testing.T, st session.Store) session.UserWriter {
	t.Helper()
	w, ok := st.(session.UserWriter)
	if !ok {
		t.Skipf("%T cannot write users", st)
	}
	return w
}

func testEmailChange(t *testing.T, newStore Factory) {
	ctx := context.Background()
	st := newStore(t, Alice())
	w := writer(t, st)

	if err := w.PutUser(ctx, Alice()); err != nil {
		t.Fatalf("rewrite with same email: %v", err)
	}

	moved := Alice()
	moved.Email = "alice.new@example.com"
	if err := w.PutUser(ctx, moved); err != nil {
		t.Fatalf("change email: %v", err)
	}

	if _, err := st.FindByEmail(ctx, Alice().Email); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("old email: expected ErrUserNotFound, got %v", err)
	}
	rec, err := st.FindByEmail(ctx, "Alice.New@example.com")
	if err != nil {
		t.Fatalf("new email: %v", err)
	}
	if rec != moved {
		t.Fatalf("record mismatch: %+v", rec)
	}
}

func testEmailTaken(t *testing.T, newStore Factory) {
	ctx := context.Background()
	bob := session.UserRecord{SubjectID: "user-bob", Email: "bob@example.com", DisplayName: "Bob"}
	st := newStore(t, Alice(), bob)
	w := writer(t, st)

	thief := bob
	thief.Email = " ALICE@example.com"
	if err := w.PutUser(ctx, thief); !errors.Is(err, session.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	rec, err := st.FindByEmail(ctx, Alice().Email)
	if err != nil || rec.SubjectID != Alice().SubjectID {
		t.Fatalf("alice lookup changed: %+v %v", rec, err)
	}
	rec, err = st.FindByEmail(ctx, bob.Email)
	if err != nil || rec.SubjectID != bob.SubjectID || rec.Email != bob.Email {
		t.Fatalf("rejected write must leave bob untouched: %+v %v", rec, err)
	}
}

func testLongFields(t *testing.T, newStore Factory) {
	ctx := context.Background()
	st := newStore(t)
	w := writer(t, st)

	rec := Alice()
	rec.DisplayName = strings.Repeat("Zoë Ångström ", 40)
	if err := w.PutUser(ctx, rec); err != nil {
		t.Fatalf("put long display name: %v", err)
	}
	got, err := st.FindByID(ctx, rec.SubjectID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != rec {
		t.Fatal("long display name must round trip")
	}
}

func testFindByID(t *testing.T, newStore Factory) {
	st := newStore(t, Alice())
	rec, err := st.FindByID(context.Background(), Alice().SubjectID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if rec != Alice() {
		t.Fatalf("record mismatch: %+v", rec)
	}
}

func testFindByEmail(t *testing.T, newStore Factory) {
	st := newStore(t, Alice())
	rec, err := st.FindByEmail(context.Background(), "  alice@example.COM ")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if rec.SubjectID != Alice().SubjectID {
		t.Fatalf("unexpected subject %q", rec.SubjectID)
	}
	if _, err := st.FindByEmail(context.Background(), "bob@example.com"); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func testRotateSequence(t *testing.T, newStore Factory) {
	ctx := context.Background()
	st := newStore(t, Alice())
	id := Alice().SubjectID

	if err := st.CompareAndRotateRefresh(ctx, id, "fp-0", "fp-1"); err != nil {
		t.Fatalf("first rotate: %v", err)
	}
	if err := st.CompareAndRotateRefresh(ctx, id, "fp-0", "fp-2"); !errors.Is(err, session.ErrRefreshMismatch) {
		t.Fatalf("replayed rotate: expected ErrRefreshMismatch, got %v", err)
	}

	rec, err := st.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.RefreshTokenHash != "fp-1" {
		t.Fatalf("mismatch must not modify stored value, got %q", rec.RefreshTokenHash)
	}

	if err := st.SetRefresh(ctx, id, "fp-login"); err != nil {
		t.Fatalf("set refresh: %v", err)
	}
	if err := st.CompareAndRotateRefresh(ctx, id, "fp-login", "fp-3"); err != nil {
		t.Fatalf("rotate after set: %v", err)
	}
}

func testRotateAfterClear(t *testing.T, newStore Factory) {
	ctx := context.Background()
	st := newStore(t, Alice())
	id := Alice().SubjectID

	if err := st.ClearRefresh(ctx, id); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := st.CompareAndRotateRefresh(ctx, id, "fp-0", "fp-1"); !errors.Is(err, session.ErrRefreshNotActive) {
		t.Fatalf("expected ErrRefreshNotActive, got %v", err)
	}
	rec, err := st.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.RefreshTokenHash != "" {
		t.Fatalf("expected cleared fingerprint, got %q", rec.RefreshTokenHash)
	}
}

func testUnknownUser(t *testing.T, newStore Factory) {
	ctx := context.Background()
	st := newStore(t)

	if _, err := st.FindByID(ctx, "ghost"); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("find: expected ErrUserNotFound, got %v", err)
	}
	if err := st.CompareAndRotateRefresh(ctx, "ghost", "a", "b"); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("rotate: expected ErrUserNotFound, got %v", err)
	}
	if err := st.SetRefresh(ctx, "ghost", "a"); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("set: expected ErrUserNotFound, got %v", err)
	}
}

func testConcurrentRotate(t *testing.T, newStore Factory) {
	ctx := context.Background()
	st := newStore(t, Alice())
	id := Alice().SubjectID

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		mismatch int
		other    []error
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := st.CompareAndRotateRefresh(ctx, id, "fp-0", fmt.Sprintf("fp-next-%d", i))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, session.ErrRefreshMismatch):
				mismatch++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if success != 1 || mismatch != workers-1 {
		t.Fatalf("expected exactly one winner, got success=%d mismatch=%d", success, mismatch)
	}
}
