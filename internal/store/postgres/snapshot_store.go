package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// InsertBatch writes one scan cycle's snapshots in a single batch round trip.
func (s *SnapshotStore) InsertBatch(ctx context.Context, snapshots []domain.MarketSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO market_snapshots
				(snapshot_ts, ticker, event_ticker, series_ticker, title,
				 best_yes_bid, best_yes_ask, best_no_bid, best_no_ask,
				 yes_spread, no_spread, volume_24h, yes_bid_depth, no_bid_depth)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			snap.SnapshotTS, snap.Ticker, snap.EventTicker, snap.SeriesTicker, snap.Title,
			snap.BestYesBid, snap.BestYesAsk, snap.BestNoBid, snap.BestNoAsk,
			snap.YesSpread, snap.NoSpread, snap.Volume24h, snap.YesBidDepth, snap.NoBidDepth,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range snapshots {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert snapshot batch: %w", err)
		}
	}
	return nil
}

// ListByTicker returns snapshots for one market since the given time,
// oldest first.
func (s *SnapshotStore) ListByTicker(ctx context.Context, ticker string, since time.Time) ([]domain.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT snapshot_ts, ticker, event_ticker, series_ticker, title,
		       best_yes_bid, best_yes_ask, best_no_bid, best_no_ask,
		       yes_spread, no_spread, volume_24h, yes_bid_depth, no_bid_depth
		FROM market_snapshots
		WHERE ticker = $1 AND snapshot_ts >= $2
		ORDER BY snapshot_ts`,
		ticker, since,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots %s: %w", ticker, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// ListBefore returns snapshots older than the given time, used for
// retention sweeps and archival.
func (s *SnapshotStore) ListBefore(ctx context.Context, before time.Time) ([]domain.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT snapshot_ts, ticker, event_ticker, series_ticker, title,
		       best_yes_bid, best_yes_ask, best_no_bid, best_no_ask,
		       yes_spread, no_spread, volume_24h, yes_bid_depth, no_bid_depth
		FROM market_snapshots
		WHERE snapshot_ts < $1
		ORDER BY snapshot_ts`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots before %s: %w", before, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// DeleteBefore removes snapshots older than the given time and returns the
// number of rows deleted.
func (s *SnapshotStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM market_snapshots WHERE snapshot_ts < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete snapshots before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshots(rows pgx.Rows) ([]domain.MarketSnapshot, error) {
	var out []domain.MarketSnapshot
	for rows.Next() {
		var snap domain.MarketSnapshot
		if err := rows.Scan(
			&snap.SnapshotTS, &snap.Ticker, &snap.EventTicker, &snap.SeriesTicker, &snap.Title,
			&snap.BestYesBid, &snap.BestYesAsk, &snap.BestNoBid, &snap.BestNoAsk,
			&snap.YesSpread, &snap.NoSpread, &snap.Volume24h, &snap.YesBidDepth, &snap.NoBidDepth,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: snapshot rows: %w", err)
	}
	return out, nil
}
