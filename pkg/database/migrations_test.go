package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "data", "test.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_EmbeddedSchema(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	require.NoError(t, m.Run(Migrations, "migrations"))
	// second run is a no-op
	require.NoError(t, m.Run(Migrations, "migrations"))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	_, err := db.Exec(`INSERT INTO vouchers (voucher_number, voucher_type, status, payload, updated_at)
		VALUES ('PET-0001', 'PettyCashSlip', 'submitted', '{}', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO vouchers (voucher_number, voucher_type, status, payload, updated_at)
		VALUES ('PET-0001', 'PettyCashSlip', 'submitted', '{}', CURRENT_TIMESTAMP)`)
	assert.Error(t, err, "voucher numbers are unique")
}

func TestMigrator_OrderAndFailure(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"m/001_first.sql":  {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
		"m/README.md":      {Data: []byte("ignored")},
	}
	require.NoError(t, m.Run(fsys, "m"))

	_, err := db.Exec("INSERT INTO things (label) VALUES ('ok')")
	require.NoError(t, err)

	bad := fstest.MapFS{"m/003_broken.sql": {Data: []byte("NOT SQL")}}
	assert.Error(t, m.Run(bad, "m"))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count, "failed migration is not recorded")
}
