package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sohio.net/flake/internal/snowflake"
)

// openLedger connects to FLAKE_TEST_DATABASE_URL and removes every row the
// test's node writes once it finishes.
func openLedger(t *testing.T, workerID, datacenterID int64) *Ledger {
	t.Helper()

	url := os.Getenv("FLAKE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLAKE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	l, err := New(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		_, err := pool.Exec(ctx, "DELETE FROM issued_ids WHERE worker_id = $1 AND datacenter_id = $2", workerID, datacenterID)
		require.NoError(t, err)
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		pool.Close()
	})
	return l
}

func TestRecordAndLookup(t *testing.T) {
	l := openLedger(t, 30, 29)
	ctx := context.Background()

	g, err := snowflake.NewGenerator(30, 29)
	require.NoError(t, err)
	ids, err := g.NextIDs(10)
	require.NoError(t, err)

	require.NoError(t, l.Record(ctx, ids...))

	e, err := l.Lookup(ctx, ids[3])
	require.NoError(t, err)
	m := snowflake.Decode(ids[3])
	assert.Equal(t, ids[3], e.ID)
	assert.Equal(t, int64(30), e.WorkerID)
	assert.Equal(t, int64(29), e.DatacenterID)
	assert.Equal(t, m.Sequence, e.Sequence)
	assert.True(t, e.GeneratedAt.Equal(m.GenerationTime))

	latest, err := l.Latest(ctx, 30, 29)
	require.NoError(t, err)
	assert.Equal(t, ids[len(ids)-1], latest)
}

func TestRecordDuplicate(t *testing.T) {
	l := openLedger(t, 30, 28)
	ctx := context.Background()

	g, err := snowflake.NewGenerator(30, 28)
	require.NoError(t, err)
	id, err := g.NextID()
	require.NoError(t, err)

	require.NoError(t, l.Record(ctx, id))
	assert.ErrorIs(t, l.Record(ctx, id), ErrDuplicateID)
}

func TestLookupMissing(t *testing.T) {
	l := openLedger(t, 30, 27)

	_, err := l.Lookup(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Latest(context.Background(), 30, 27)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckClock(t *testing.T) {
	l := openLedger(t, 30, 26)
	ctx := context.Background()

	require.NoError(t, l.CheckClock(ctx, 30, 26, time.Now()))

	g, err := snowflake.NewGenerator(30, 26)
	require.NoError(t, err)
	id, err := g.NextID()
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, id))

	issued := snowflake.Decode(id).GenerationTime
	assert.ErrorIs(t, l.CheckClock(ctx, 30, 26, issued.Add(-time.Second)), snowflake.ErrClockMovedBackwards)
	assert.NoError(t, l.CheckClock(ctx, 30, 26, issued.Add(time.Millisecond)))
}

func TestListen(t *testing.T) {
	l := openLedger(t, 30, 25)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan snowflake.ID, 4)
	done := make(chan error, 1)
	go func() {
		done <- l.Listen(ctx, func(id snowflake.ID) { got <- id })
	}()

	g, err := snowflake.NewGenerator(30, 25)
	require.NoError(t, err)
	id, err := g.NextID()
	require.NoError(t, err)

	// LISTEN is issued asynchronously, so keep recording until one arrives.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case received := <-got:
			assert.Greater(t, uint64(received), uint64(0))
			cancel()
			<-done
			return
		case <-deadline:
			t.Fatal("no notification received")
		case <-time.After(100 * time.Millisecond):
			require.NoError(t, l.Record(ctx, id))
			id, err = g.NextID()
			require.NoError(t, err)
		}
	}
}
