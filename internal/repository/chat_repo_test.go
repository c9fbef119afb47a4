package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"messaging-service/internal/domain"
	"messaging-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeQuerier replays one queued row per QueryRow call and records the SQL.
type fakeQuerier struct {
	rows []fakeRow
	sqls []string
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sqls = append(f.sqls, sql)
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("unexpected Query")
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	panic("unexpected Exec")
}

func (f *fakeQuerier) Begin(ctx context.Context) (pgx.Tx, error) {
	panic("unexpected Begin")
}

func conversationRow(id int64, kind domain.ChatKind, low, high int64) fakeRow {
	now := time.Now()
	return fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*int64)) = id
		*(dest[1].(*domain.ChatKind)) = kind
		*(dest[2].(*int64)) = low
		*(dest[3].(*int64)) = high
		*(dest[4].(*time.Time)) = now
		*(dest[5].(*time.Time)) = now
		return nil
	}}
}

func TestEnsureConversation_InsertWins(t *testing.T) {
	db := &fakeQuerier{rows: []fakeRow{conversationRow(7, domain.KindMember, 1, 2)}}
	repo := &pgChatRepo{db: db}

	conv, err := repo.EnsureConversation(context.Background(), domain.KindMember, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(7), conv.ID)
	assert.Equal(t, int64(1), conv.MemberLow)
	assert.Equal(t, int64(2), conv.MemberHigh)
	require.Len(t, db.sqls, 1, "a fresh pair needs only the insert")
	assert.Contains(t, db.sqls[0], "ON CONFLICT")
}

func TestEnsureConversation_ConflictReturnsWinner(t *testing.T) {
	// DO NOTHING on conflict yields no row, so the insert scans ErrNoRows
	// and the winner is read back.
	db := &fakeQuerier{rows: []fakeRow{
		{scan: func(dest ...any) error { return pgx.ErrNoRows }},
		conversationRow(42, domain.KindMember, 1, 2),
	}}
	repo := &pgChatRepo{db: db}

	conv, err := repo.EnsureConversation(context.Background(), domain.KindMember, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(42), conv.ID, "the concurrent winner's row is returned")
	require.Len(t, db.sqls, 2)
	assert.Contains(t, db.sqls[0], "INSERT")
	assert.True(t, strings.Contains(db.sqls[1], "SELECT"), "conflict falls back to a read")
}

func TestGetConversation_MissingPairIsNotFound(t *testing.T) {
	db := &fakeQuerier{rows: []fakeRow{
		{scan: func(dest ...any) error { return pgx.ErrNoRows }},
	}}
	repo := &pgChatRepo{db: db}

	_, err := repo.GetConversation(context.Background(), domain.KindMember, 1, 2)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
