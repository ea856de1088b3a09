package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPending(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql":   {Data: []byte("SELECT 2")},
		"0001_a.sql":   {Data: []byte("SELECT 1")},
		"0003_c.sql":   {Data: []byte("SELECT 3")},
		"README.md":    {Data: []byte("docs")},
		"sub/0004.sql": {Data: []byte("SELECT 4")},
	}
	got, err := Pending(fsys, map[string]bool{"0002_b": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0003_c.sql"}, got)
}

func TestRun_AppliesOnlyPending(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("CREATE TABLE a (id int)")},
		"0002_b.sql": {Data: []byte("CREATE TABLE b (id int)")},
	}

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("0001_a"))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("0002_b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, Run(context.Background(), db, fsys, zap.NewNop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
