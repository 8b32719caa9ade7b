package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store. A single mutex makes every operation,
// including the compare-and-rotate, atomic.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]UserRecord
	byEmail map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]UserRecord),
		byEmail: make(map[string]string),
	}
}

var (
	_ Store      = (*MemoryStore)(nil)
	_ UserWriter = (*MemoryStore)(nil)
)

// Put inserts or replaces rec.
func (m *MemoryStore) Put(rec UserRecord) error {
	return m.PutUser(context.Background(), rec)
}

// PutUser inserts or replaces rec and moves its email index entry.
func (m *MemoryStore) PutUser(ctx context.Context, rec UserRecord) error {
	if rec.SubjectID == "" {
		return errors.New("subject id required")
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := NormalizeEmail(rec.Email)
	if owner, ok := m.byEmail[key]; ok && key != "" && owner != rec.SubjectID {
		return ErrEmailTaken
	}
	if prev, ok := m.users[rec.SubjectID]; ok {
		delete(m.byEmail, NormalizeEmail(prev.Email))
	}
	m.users[rec.SubjectID] = rec
	if key != "" {
		m.byEmail[key] = rec.SubjectID
	}
	return nil
}

// Delete removes a user. Missing users are ignored.
func (m *MemoryStore) Delete(subjectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.users[subjectID]; ok {
		delete(m.byEmail, NormalizeEmail(rec.Email))
		delete(m.users, subjectID)
	}
}

// FindByID returns the record for subjectID or ErrUserNotFound.
func (m *MemoryStore) FindByID(ctx context.Context, subjectID string) (UserRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return UserRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[subjectID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec, nil
}

// FindByEmail looks up a record by normalized email.
func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	if err := ctxErr(ctx); err != nil {
		return UserRecord{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return m.users[id], nil
}

// SetRefresh replaces the stored fingerprint unconditionally.
func (m *MemoryStore) SetRefresh(ctx context.Context, subjectID, hash string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[subjectID]
	if !ok {
		return ErrUserNotFound
	}
	rec.RefreshTokenHash = hash
	m.users[subjectID] = rec
	return nil
}

// CompareAndRotateRefresh swaps expected for next under the store mutex.
func (m *MemoryStore) CompareAndRotateRefresh(ctx context.Context, subjectID, expected, next string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[subjectID]
	if !ok {
		return ErrUserNotFound
	}
	if rec.RefreshTokenHash == "" {
		return ErrRefreshNotActive
	}
	if rec.RefreshTokenHash != expected {
		return ErrRefreshMismatch
	}
	rec.RefreshTokenHash = next
	m.users[subjectID] = rec
	return nil
}

// ClearRefresh empties the stored fingerprint.
func (m *MemoryStore) ClearRefresh(ctx context.Context, subjectID string) error {
	return m.SetRefresh(ctx, subjectID, "")
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
