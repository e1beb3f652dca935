package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// SnapshotArchiveSource is the narrow read surface the archiver needs from
// the snapshot store. The Postgres SnapshotStore satisfies it.
type SnapshotArchiveSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.MarketSnapshot, error)
}

// BasketArchiveSource is the narrow read surface the archiver needs from the
// basket store.
type BasketArchiveSource interface {
	ListRecent(ctx context.Context, limit int) ([]domain.BasketResult, error)
}

// Archiver serializes aged snapshots and basket history to JSONL and uploads
// them to blob storage. Deletion from the primary store is intentionally not
// performed here; retention sweeps run separately, after the archive has
// been verified.
type Archiver struct {
	writer    domain.BlobWriter
	snapshots SnapshotArchiveSource
	baskets   BasketArchiveSource
	prefix    string
}

// NewArchiver creates an Archiver. prefix namespaces all uploaded keys, e.g.
// "kalshibot/prod".
func NewArchiver(writer domain.BlobWriter, snapshots SnapshotArchiveSource, baskets BasketArchiveSource, prefix string) *Archiver {
	if prefix == "" {
		prefix = "kalshibot"
	}
	return &Archiver{
		writer:    writer,
		snapshots: snapshots,
		baskets:   baskets,
		prefix:    prefix,
	}
}

// ArchiveSnapshots uploads every snapshot older than the cutoff as one JSONL
// object and returns the object key and record count. No records means no
// upload and an empty key.
func (a *Archiver) ArchiveSnapshots(ctx context.Context, before time.Time) (string, int, error) {
	snaps, err := a.snapshots.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: list snapshots for archive: %w", err)
	}
	if len(snaps) == 0 {
		return "", 0, nil
	}

	body, err := toJSONL(snaps)
	if err != nil {
		return "", 0, err
	}

	key := a.key("snapshots", before)
	if err := a.writer.Write(ctx, key, body, "application/x-ndjson"); err != nil {
		return "", 0, err
	}
	return key, len(snaps), nil
}

// ArchiveBaskets uploads the most recent basket results as one JSONL object.
func (a *Archiver) ArchiveBaskets(ctx context.Context, limit int) (string, int, error) {
	baskets, err := a.baskets.ListRecent(ctx, limit)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: list baskets for archive: %w", err)
	}
	if len(baskets) == 0 {
		return "", 0, nil
	}

	body, err := toJSONL(baskets)
	if err != nil {
		return "", 0, err
	}

	key := a.key("baskets", time.Now().UTC())
	if err := a.writer.Write(ctx, key, body, "application/x-ndjson"); err != nil {
		return "", 0, err
	}
	return key, len(baskets), nil
}

// WriteScanReport uploads one scan cycle's analyses as a JSON document, used
// for offline review of what the scanner saw.
func (a *Archiver) WriteScanReport(ctx context.Context, scannedAt time.Time, analyses []domain.EventAnalysis) (string, error) {
	body, err := json.MarshalIndent(analyses, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal scan report: %w", err)
	}

	key := fmt.Sprintf("%s/scans/%s/scan-%d.json",
		a.prefix, scannedAt.UTC().Format("2006/01/02"), scannedAt.UTC().Unix())
	if err := a.writer.Write(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

func (a *Archiver) key(kind string, ts time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s-%d.jsonl",
		a.prefix, kind, ts.UTC().Format("2006/01/02"), kind, ts.UTC().Unix())
}

func toJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("s3blob: encode archive record: %w", err)
		}
	}
	return buf.Bytes(), nil
}
