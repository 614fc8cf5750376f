//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/phrazzld/moodboard-api/internal/platform/logger"
	"github.com/phrazzld/moodboard-api/internal/platform/postgres"
)

// EnvTestDatabaseURL points tests at an existing database instead of a container.
const EnvTestDatabaseURL = "MOODBOARD_TEST_DB_URL"

const (
	image        = "pgvector/pgvector:pg16"
	startTimeout = 60 * time.Second
)

// Open returns a connection to a fully migrated database. The database and
// any container backing it are released when the test finishes.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	url := os.Getenv(EnvTestDatabaseURL)
	if url == "" {
		url = startContainer(t)
	}

	db, err := postgres.Open(ctx, url, logger.Discard())
	require.NoError(t, err, "connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db, "up", logger.Discard()), "migrate test database")
	return db
}

func startContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "moodboard",
				"POSTGRES_PASSWORD": "moodboard",
				"POSTGRES_DB":       "moodboard_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startTimeout),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://moodboard:moodboard@%s:%s/moodboard_test?sslmode=disable", host, port.Port())
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// sharing a database do not see each other's rows.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "begin test transaction")
	defer func() { _ = tx.Rollback() }()

	fn(t, tx)
}

// InsertBoard creates a board inside tx and returns its ID.
func InsertBoard(t *testing.T, tx *sql.Tx, title string) int64 {
	t.Helper()
	var id int64
	err := tx.QueryRowContext(context.Background(),
		`INSERT INTO boards (title) VALUES ($1) RETURNING id`, title).Scan(&id)
	require.NoError(t, err, "insert board")
	return id
}

// InsertTextItem creates a text item inside tx and returns its ID.
func InsertTextItem(t *testing.T, tx *sql.Tx, boardID int64, content string) int64 {
	t.Helper()
	var id int64
	err := tx.QueryRowContext(context.Background(),
		`INSERT INTO items (board_id, type, content) VALUES ($1, 'text', $2) RETURNING id`,
		boardID, content).Scan(&id)
	require.NoError(t, err, "insert item")
	return id
}
