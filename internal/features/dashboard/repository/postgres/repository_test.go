package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDriver records the transaction options the repository asks for. The
// queries themselves fail fast; only the BeginTx contract is under test here.
type captureDriver struct {
	opts *driver.TxOptions
}

func (d *captureDriver) Open(name string) (driver.Conn, error) {
	return &captureConn{d: d}, nil
}

type captureConn struct {
	d *captureDriver
}

func (c *captureConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("query not supported")
}

func (c *captureConn) Close() error { return nil }

func (c *captureConn) Begin() (driver.Tx, error) {
	return nil, errors.New("BeginTx expected")
}

func (c *captureConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.d.opts = &opts
	return captureTx{}, nil
}

type captureTx struct{}

func (captureTx) Commit() error   { return nil }
func (captureTx) Rollback() error { return nil }

func TestGetStatsUsesRepeatableReadSnapshot(t *testing.T) {
	drv := &captureDriver{}
	sql.Register("dashboard-stats-capture", drv)

	db, err := sql.Open("dashboard-stats-capture", "")
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	_, _ = repo.GetStats(context.Background(), 42)

	require.NotNil(t, drv.opts, "GetStats must open an explicit transaction")
	assert.Equal(t, driver.IsolationLevel(sql.LevelRepeatableRead), drv.opts.Isolation,
		"per-statement snapshots could mix two instants")
	assert.True(t, drv.opts.ReadOnly)
}
