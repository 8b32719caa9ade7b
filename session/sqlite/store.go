package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Store is a session.Store backed by SQLite.
type Store struct {
	db  *sql.DB
	dsn string
	now func() time.Time
}

var (
	_ session.Store      = (*Store)(nil)
	_ session.UserWriter = (*Store)(nil)
)

// NewStore opens dsn. Call ApplyMigrations before first use.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts rec. A ULID subject id is assigned when rec has none.
func (s *Store) CreateUser(ctx context.Context, rec session.UserRecord) (session.UserRecord, error) {
	if rec.Email == "" {
		return session.UserRecord{}, errors.New("email required")
	}
	if rec.SubjectID == "" {
		rec.SubjectID = ulid.Make().String()
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := claimEmail(ctx, tx, rec); err != nil {
			return err
		}
		now := s.now().UTC()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, email_key, display_name, password_hash, refresh_token_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.SubjectID, rec.Email, session.NormalizeEmail(rec.Email), rec.DisplayName,
			rec.PasswordHash, rec.RefreshTokenHash, now, now,
		)
		return err
	})
	if err != nil {
		return session.UserRecord{}, err
	}
	return rec, nil
}

// PutUser inserts rec or replaces the row with the same subject id. The email
// index follows the row, so a changed address stops resolving at once.
func (s *Store) PutUser(ctx context.Context, rec session.UserRecord) error {
	if rec.SubjectID == "" {
		return errors.New("subject id required")
	}
	if rec.Email == "" {
		return errors.New("email required")
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := claimEmail(ctx, tx, rec); err != nil {
			return err
		}
		now := s.now().UTC()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, email_key, display_name, password_hash, refresh_token_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				email = excluded.email,
				email_key = excluded.email_key,
				display_name = excluded.display_name,
				password_hash = excluded.password_hash,
				refresh_token_hash = excluded.refresh_token_hash,
				updated_at = excluded.updated_at`,
			rec.SubjectID, rec.Email, session.NormalizeEmail(rec.Email), rec.DisplayName,
			rec.PasswordHash, rec.RefreshTokenHash, now, now,
		)
		return err
	})
}

// claimEmail fails with ErrEmailTaken when rec's address belongs to another row.
func claimEmail(ctx context.Context, tx *sql.Tx, rec session.UserRecord) error {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email_key = ?`,
		session.NormalizeEmail(rec.Email)).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	case owner != rec.SubjectID:
		return session.ErrEmailTaken
	default:
		return nil
	}
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, session.ErrEmailTaken) {
			return err
		}
		return unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteUser removes a user. Missing users are ignored.
func (s *Store) DeleteUser(ctx context.Context, subjectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, subjectID); err != nil {
		return unavailable(err)
	}
	return nil
}

// FindByID returns the row for subjectID or session.ErrUserNotFound.
func (s *Store) FindByID(ctx context.Context, subjectID string) (session.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, refresh_token_hash
		FROM users WHERE id = ?`, subjectID)
	return scanUser(row)
}

// FindByEmail looks up a row by normalized email.
func (s *Store) FindByEmail(ctx context.Context, email string) (session.UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, refresh_token_hash
		FROM users WHERE email_key = ?`, session.NormalizeEmail(email))
	return scanUser(row)
}

// SetRefresh replaces the stored fingerprint unconditionally.
func (s *Store) SetRefresh(ctx context.Context, subjectID, hash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET refresh_token_hash = ?, updated_at = ?
		WHERE id = ?`, hash, s.now().UTC(), subjectID)
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return session.ErrUserNotFound
	}
	return nil
}

// CompareAndRotateRefresh is a single conditional UPDATE; the follow-up read
// only classifies why nothing matched.
func (s *Store) CompareAndRotateRefresh(ctx context.Context, subjectID, expected, next string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET refresh_token_hash = ?, updated_at = ?
		WHERE id = ? AND refresh_token_hash = ? AND refresh_token_hash <> ''`,
		next, s.now().UTC(), subjectID, expected)
	if err != nil {
		return unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT refresh_token_hash FROM users WHERE id = ?`, subjectID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return session.ErrUserNotFound
	case err != nil:
		return unavailable(err)
	case current == "":
		return session.ErrRefreshNotActive
	default:
		return session.ErrRefreshMismatch
	}
}

// ClearRefresh empties the stored fingerprint.
func (s *Store) ClearRefresh(ctx context.Context, subjectID string) error {
	return s.SetRefresh(ctx, subjectID, "")
}

func scanUser(row *sql.Row) (session.UserRecord, error) {
	var rec session.UserRecord
	err := row.Scan(&rec.SubjectID, &rec.Email, &rec.DisplayName, &rec.PasswordHash, &rec.RefreshTokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.UserRecord{}, session.ErrUserNotFound
		}
		return session.UserRecord{}, unavailable(err)
	}
	return rec, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
}
