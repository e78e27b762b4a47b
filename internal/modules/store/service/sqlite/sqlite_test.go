package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/store/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSchemaCreated(t *testing.T) {
	t.Parallel()

	s, path := newTestStore(t)
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	for _, table := range []string{"users", "tokens", "trade_journal", "instruments"} {
		assert.True(t, found[table], table)
	}
}

func TestUserAndToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestStore(t)

	u, err := s.CreateUser(ctx, " Alice ", "correct-horse", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotZero(t, u.ID)
	assert.True(t, service.CheckPassword(u.HashedPassword, "correct-horse"))

	_, err = s.CreateUser(ctx, "alice", "another-pass", models.RoleAdmin)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	tok, err := s.CreateToken(ctx, "ALICE", "ci")
	require.NoError(t, err)
	assert.Len(t, tok.Token, 64)
	assert.Equal(t, u.ID, tok.UserID)

	p, err := s.VerifyToken(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, models.RoleUser, p.Role)

	_, err = s.VerifyToken(ctx, "nope")
	assert.Equal(t, models.KindForbidden, models.KindOf(err))
}

func TestCreateTokenUnknownUser(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	_, err := s.CreateToken(context.Background(), "ghost", "x")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestShortPasswordRejected(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	_, err := s.CreateUser(context.Background(), "bob", "short", models.RoleUser)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestJournalNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i, action := range []string{"open", "modify", "close"} {
		e := &models.JournalEntry{
			Username:  "alice",
			Action:    action,
			Ticket:    uint64(100 + i),
			Symbol:    "EURUSD",
			Direction: "buy",
			Volume:    0.1,
			Price:     1.1,
			Success:   i != 1,
			Message:   action,
			Snapshot:  []byte(`{"k":1}`),
		}
		require.NoError(t, s.AddJournalEntry(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	got, err := s.ListJournal(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "close", got[0].Action)
	assert.Equal(t, uint64(102), got[0].Ticket)
	assert.True(t, got[0].Success)
	assert.False(t, got[1].Success)
	assert.JSONEq(t, `{"k":1}`, string(got[0].Snapshot))

	all, err := s.ListJournal(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInstrumentUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newTestStore(t)

	empty, err := s.ListInstruments(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	in := &models.Instrument{Symbol: "XAUUSD", Description: "Gold", Session: "24h"}
	require.NoError(t, s.UpsertInstrument(ctx, in))
	id := in.ID

	in2 := &models.Instrument{Symbol: "XAUUSD", Description: "Gold spot", VolatilityProfile: "high"}
	require.NoError(t, s.UpsertInstrument(ctx, in2))
	assert.Equal(t, id, in2.ID)

	require.NoError(t, s.UpsertInstrument(ctx, &models.Instrument{Symbol: "EURUSD"}))

	list, err := s.ListInstruments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "EURUSD", list[0].Symbol)
	assert.Equal(t, "Gold spot", list[1].Description)
	assert.Equal(t, "high", list[1].VolatilityProfile)
	assert.NoError(t, s.Ping(ctx))
}
