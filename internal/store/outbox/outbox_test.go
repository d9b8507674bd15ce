package outbox

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/webitel/broadcast-delivery-service/internal/store/postgres"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("broadcast"),
		tcpostgres.WithUsername("broadcast"),
		tcpostgres.WithPassword("broadcast"),
		wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30*time.Second),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn))

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*message.Message
	err       error
}

func (f *fakePublisher) Publish(topic string, messages ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, messages...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestWriterThenPoller_PublishesAndDeletesRow(t *testing.T) {
	pool := newTestPool(t)
	writer := NewWriter()
	pub := &fakePublisher{}
	poller := NewPoller(pool, pub, discardLogger())
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	aggregateID := uuid.New()
	require.NoError(t, writer.Emit(ctx, tx, aggregateID, "CREATED", "broadcast.lifecycle", map[string]string{"k": "v"}))
	require.NoError(t, tx.Commit(ctx))

	require.NoError(t, poller.RunOnce(ctx))

	assert.Len(t, pub.published, 1)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&remaining))
	assert.Zero(t, remaining)
}

func TestPoller_PublishFailureLeavesRowForRetry(t *testing.T) {
	pool := newTestPool(t)
	writer := NewWriter()
	pub := &fakePublisher{err: assert.AnError}
	poller := NewPoller(pool, pub, discardLogger())
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, writer.Emit(ctx, tx, uuid.New(), "CREATED", "broadcast.lifecycle", map[string]string{"k": "v"}))
	require.NoError(t, tx.Commit(ctx))

	err = poller.RunOnce(ctx)
	require.Error(t, err)

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM outbox_events`).Scan(&remaining))
	assert.Equal(t, 1, remaining)
}

// Note: publishOne's quarantine-on-unmarshal path can't be exercised through
// Writer.Emit or a raw INSERT here — the payload column is JSONB, so
// Postgres itself rejects anything that isn't valid JSON before a row ever
// reaches the poller. That branch only matters if the column type ever
// changes to something less strict.
