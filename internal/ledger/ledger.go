// Package ledger records issued IDs in PostgreSQL and relays them between
// processes with LISTEN/NOTIFY.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sohio.net/flake/internal/snowflake"
)

// Channel is the NOTIFY channel carrying one issued ID per payload.
const Channel = "issued_ids"

const schema = `CREATE TABLE IF NOT EXISTS issued_ids(
	id bigint primary key,
	datacenter_id smallint not null,
	worker_id smallint not null,
	sequence smallint not null,
	generated_at timestamptz not null
)`

var (
	ErrDuplicateID = errors.New("ledger: id already recorded")
	ErrNotFound    = errors.New("ledger: id not recorded")
)

// Entry is a recorded ID.
type Entry struct {
	ID           snowflake.ID
	DatacenterID int64
	WorkerID     int64
	Sequence     int64
	GeneratedAt  time.Time
}

type Ledger struct {
	db *pgxpool.Pool
}

// New ensures the schema exists.
func New(ctx context.Context, db *pgxpool.Pool) (*Ledger, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &Ledger{db}, nil
}

// Record stores ids and notifies listeners, all in one transaction. A
// serialization failure is retried; a primary key conflict means an ID was
// issued twice and returns ErrDuplicateID.
func (l *Ledger) Record(ctx context.Context, ids ...snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}

	for {
		err := l.record(ctx, ids)
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.SerializationFailure:
				continue
			case pgerrcode.UniqueViolation:
				return fmt.Errorf("%w: %s", ErrDuplicateID, pgErr.Detail)
			}
		}
		return err
	}
}

func (l *Ledger) record(ctx context.Context, ids []snowflake.ID) error {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var b pgx.Batch
	for _, id := range ids {
		m := snowflake.Decode(id)
		b.Queue(
			"INSERT INTO issued_ids VALUES ($1, $2, $3, $4, $5)",
			int64(id),
			m.DatacenterID,
			m.WorkerID,
			m.Sequence,
			m.GenerationTime,
		)
		b.Queue("SELECT pg_notify($1, $2)", Channel, id.String())
	}
	if err := tx.SendBatch(ctx, &b).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Lookup returns the recorded entry for id.
func (l *Ledger) Lookup(ctx context.Context, id snowflake.ID) (e Entry, err error) {
	var raw int64
	err = l.db.QueryRow(ctx,
		"SELECT id, datacenter_id, worker_id, sequence, generated_at FROM issued_ids WHERE id = $1",
		int64(id),
	).Scan(&raw, &e.DatacenterID, &e.WorkerID, &e.Sequence, &e.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = ErrNotFound
		return
	}
	e.ID = snowflake.ID(raw)
	return
}

// Latest returns the highest ID recorded for a node, or ErrNotFound.
func (l *Ledger) Latest(ctx context.Context, workerID, datacenterID int64) (snowflake.ID, error) {
	var raw int64
	err := l.db.QueryRow(ctx,
		"SELECT id FROM issued_ids WHERE worker_id = $1 AND datacenter_id = $2 ORDER BY id DESC LIMIT 1",
		workerID, datacenterID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return snowflake.ID(raw), nil
}

// CheckClock fails with snowflake.ErrClockMovedBackwards unless now is past
// the newest ID this node has recorded. It guards restarts on a host
// whose clock was set back while the process was down.
func (l *Ledger) CheckClock(ctx context.Context, workerID, datacenterID int64, now time.Time) error {
	last, err := l.Latest(ctx, workerID, datacenterID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	lastMs := snowflake.Decode(last).GenerationTime.UnixMilli()
	if nowMs := now.UnixMilli(); nowMs <= lastMs {
		return &snowflake.ClockMovedBackwardsError{Last: lastMs, Now: nowMs}
	}
	return nil
}

// Listen calls fn for every ID notified on Channel until ctx ends. It holds
// one pooled connection for its lifetime.
func (l *Ledger) Listen(ctx context.Context, fn func(snowflake.ID)) error {
	pc, err := l.db.Acquire(ctx)
	if err != nil {
		return err
	}

	c := pc.Hijack()
	defer c.Close(context.WithoutCancel(ctx))

	if _, err := c.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}

	for {
		n, err := c.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		id, err := snowflake.ParseID(n.Payload)
		if err != nil {
			continue
		}
		fn(id)
	}
}
