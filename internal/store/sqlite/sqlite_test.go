package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

func openMemory(t *testing.T) *Gateway {
	t.Helper()
	g, err := Open("file::memory:", store.Timeouts{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func cards(n int) *core.Dataset {
	ds := core.NewDataset([]string{"ID", "rarity", "rate"})
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, []core.Value{core.Int(int64(i + 1)), core.Text("SSR"), core.Null()})
	}
	return ds
}

func TestDSN(t *testing.T) {
	dsn, err := DSN("sqlite://./data/mirror.db")
	require.NoError(t, err)
	assert.Equal(t, "./data/mirror.db", dsn)

	dsn, err = DSN("file:mirror.db?cache=shared")
	require.NoError(t, err)
	assert.Equal(t, "file:mirror.db?cache=shared", dsn)

	_, err = DSN("libsql://db.turso.io")
	assert.Error(t, err)
}

func TestGateway_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	g := openMemory(t)
	require.NoError(t, g.Ping(ctx))

	schema := core.ColumnTypeMap{
		{Name: "ID", Type: core.TypeInteger},
		{Name: "rarity", Type: core.TypeText},
		{Name: "rate", Type: core.TypeReal},
	}
	require.NoError(t, g.RecreateTable(ctx, "cards", schema))

	counts, err := g.ReplaceAll(ctx, "cards", cards(120), 50)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{Deleted: 0, Inserted: 120}, counts)

	counts, err = g.ReplaceAll(ctx, "cards", cards(3), 50)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{Deleted: 120, Inserted: 3}, counts)

	var n int
	require.NoError(t, g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM `cards`").Scan(&n))
	assert.Equal(t, 3, n)

	var rate sql.NullFloat64
	require.NoError(t, g.db.QueryRowContext(ctx, "SELECT `rate` FROM `cards` WHERE `ID` = 1").Scan(&rate))
	assert.False(t, rate.Valid)
}

func TestGateway_DuplicateIDFailsBatch(t *testing.T) {
	ctx := context.Background()
	g := openMemory(t)

	require.NoError(t, g.RecreateTable(ctx, "cards", core.ColumnTypeMap{
		{Name: "ID", Type: core.TypeInteger},
		{Name: "rarity", Type: core.TypeText},
		{Name: "rate", Type: core.TypeReal},
	}))

	ds := cards(4)
	ds.Rows[3][0] = core.Int(3) // second batch repeats ID 3

	counts, err := g.ReplaceAll(ctx, "cards", ds, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransaction)
	assert.Equal(t, int64(3), counts.Inserted)

	var n int
	require.NoError(t, g.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM `cards`").Scan(&n))
	assert.Equal(t, 3, n, "earlier batch stays applied")
}

func TestGateway_RollsBackFailedBatch(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	g := New(db, store.Timeouts{}, nil)

	mock.ExpectExec("DELETE FROM `cards`").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `cards` (`ID`, `rarity`, `rate`) VALUES (1, 'SSR', NULL)").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO `cards` (`ID`, `rarity`, `rate`) VALUES (2, 'SSR', NULL)").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	counts, err := g.ReplaceAll(context.Background(), "cards", cards(2), 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransaction)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, store.Counts{Deleted: 2, Inserted: 0}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGateway_RecreateTableFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	g := New(db, store.Timeouts{}, nil)

	mock.ExpectExec("DROP TABLE IF EXISTS").WillReturnError(assert.AnError)

	err = g.RecreateTable(context.Background(), "cards", core.ColumnTypeMap{{Name: "ID", Type: core.TypeInteger}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSchema)
	assert.NoError(t, mock.ExpectationsWereMet())
}
