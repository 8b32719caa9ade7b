package sqlite_test

import (
	"context"
	"testing"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/session/sqlite"
	"github.com/MrEthical07/goSession/session/storetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestStoreBehavior(t *testing.T) {
	storetest.Run(t, func(t *testing.T, users ...session.UserRecord) session.Store {
		st := newStore(t)
		for _, u := range users {
			_, err := st.CreateUser(context.Background(), u)
			require.NoError(t, err)
		}
		return st
	})
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	st := newStore(t)
	require.NoError(t, st.ApplyMigrations())
}

func TestCreateUserAssignsID(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	rec, err := st.CreateUser(ctx, session.UserRecord{Email: "bob@example.com", DisplayName: "Bob"})
	require.NoError(t, err)
	require.Len(t, rec.SubjectID, 26)

	got, err := st.FindByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	require.Equal(t, rec, got)

	_, err = st.CreateUser(ctx, session.UserRecord{Email: "Bob@Example.com"})
	require.ErrorIs(t, err, session.ErrEmailTaken)

	_, err = st.CreateUser(ctx, session.UserRecord{SubjectID: rec.SubjectID, Email: "other@example.com"})
	require.ErrorIs(t, err, session.ErrStoreUnavailable)

	_, err = st.CreateUser(ctx, session.UserRecord{})
	require.Error(t, err)
}

func TestDeleteUser(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	rec, err := st.CreateUser(ctx, storetest.Alice())
	require.NoError(t, err)
	require.NoError(t, st.DeleteUser(ctx, rec.SubjectID))
	require.NoError(t, st.DeleteUser(ctx, rec.SubjectID))

	_, err = st.FindByID(ctx, rec.SubjectID)
	require.ErrorIs(t, err, session.ErrUserNotFound)
}
