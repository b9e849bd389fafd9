package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

const (
	// DefaultBatchSize bounds how many scenarios go into one object.
	DefaultBatchSize = 5000
	// maxSuffix bounds the search for a free object key within a month.
	maxSuffix = 1000
)

// ArchiverConfig tunes where and how scenarios are archived.
type ArchiverConfig struct {
	// Prefix is the key prefix, e.g. "archive/scenarios".
	Prefix    string
	BatchSize int
}

// Archiver implements domain.Archiver. It copies scenarios older than a
// cutoff to JSONL objects, records each upload in the audit log and then
// deletes exactly the rows it copied.
type Archiver struct {
	writer    domain.BlobWriter
	reader    domain.BlobReader
	scenarios domain.ScenarioStore
	audit     domain.AuditStore
	cfg       ArchiverConfig
}

// NewArchiver creates an Archiver.
func NewArchiver(
	writer domain.BlobWriter,
	reader domain.BlobReader,
	scenarios domain.ScenarioStore,
	audit domain.AuditStore,
	cfg ArchiverConfig,
) *Archiver {
	if cfg.Prefix == "" {
		cfg.Prefix = "archive/scenarios"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Archiver{
		writer:    writer,
		reader:    reader,
		scenarios: scenarios,
		audit:     audit,
		cfg:       cfg,
	}
}

// ArchiveScenarios moves every scenario created before the cutoff into
// <prefix>/YYYY-MM.jsonl objects, one per batch, and returns how many rows
// were archived.
func (a *Archiver) ArchiveScenarios(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for {
		batch, err := a.scenarios.ListBefore(ctx, before, a.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("s3blob: archive scenarios query: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		n, err := a.archiveBatch(ctx, batch, before)
		total += n
		if err != nil {
			return total, err
		}
		if len(batch) < a.cfg.BatchSize || n == 0 {
			return total, nil
		}
	}
}

func (a *Archiver) archiveBatch(ctx context.Context, batch []domain.Scenario, before time.Time) (int64, error) {
	buf, err := marshalJSONL(batch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive scenarios marshal: %w", err)
	}

	key, err := a.freeKey(ctx, before)
	if err != nil {
		return 0, err
	}
	if int64(len(buf)) > minPartSize {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive scenarios upload: %w", err)
	}

	if err := a.audit.Log(ctx, "archive.scenarios", map[string]any{
		"path":   key,
		"count":  len(batch),
		"before": before.UTC().Format(time.RFC3339),
	}); err != nil {
		return 0, fmt.Errorf("s3blob: archive scenarios audit log: %w", err)
	}

	ids := make([]string, len(batch))
	for i, sc := range batch {
		ids[i] = sc.ID
	}
	deleted, err := a.scenarios.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive scenarios delete: %w", err)
	}
	return deleted, nil
}

// freeKey returns <prefix>/YYYY-MM.jsonl, or the first unused
// <prefix>/YYYY-MM-N.jsonl when earlier runs already wrote that month.
func (a *Archiver) freeKey(ctx context.Context, before time.Time) (string, error) {
	base := path.Join(a.cfg.Prefix, before.UTC().Format("2006-01"))
	for i := 0; i < maxSuffix; i++ {
		key := base + ".jsonl"
		if i > 0 {
			key = fmt.Sprintf("%s-%d.jsonl", base, i)
		}
		exists, err := a.reader.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("s3blob: archive key %s: %w", key, err)
		}
		if !exists {
			return key, nil
		}
	}
	return "", fmt.Errorf("s3blob: no free archive key under %s", base)
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)
