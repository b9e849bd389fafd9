package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

const (
	archiveLockKey = "archive:scenarios"
	archiveLockTTL = 30 * time.Minute
)

// archiveName matches the object names the archiver writes under the prefix.
var archiveName = regexp.MustCompile(`^\d{4}-\d{2}(-\d+)?\.jsonl$`)

// ArchiveService moves scenarios past their retention to object storage.
// Runs hold a distributed lock so only one process archives at a time.
type ArchiveService struct {
	archiver  domain.Archiver
	blobs     domain.BlobReader
	locks     domain.LockManager
	events    publisher
	retention time.Duration
	prefix    string
	trigger   <-chan struct{}
	now       func() time.Time
	logger    *slog.Logger
}

// NewArchiveService creates an ArchiveService. locks and bus may be nil.
func NewArchiveService(
	archiver domain.Archiver,
	blobs domain.BlobReader,
	locks domain.LockManager,
	bus domain.SignalBus,
	retentionDays int,
	prefix string,
	logger *slog.Logger,
) *ArchiveService {
	return &ArchiveService{
		archiver:  archiver,
		blobs:     blobs,
		locks:     locks,
		events:    publisher{bus: bus, logger: logger},
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		prefix:    prefix,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// WithTrigger makes Run archive immediately whenever ch receives.
func (s *ArchiveService) WithTrigger(ch <-chan struct{}) *ArchiveService {
	s.trigger = ch
	return s
}

// RunOnce archives everything older than the retention window. It returns
// zero without error when another process holds the lock.
func (s *ArchiveService) RunOnce(ctx context.Context) (int64, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, archiveLockKey, archiveLockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.InfoContext(ctx, "archive_service: run skipped, lock held elsewhere")
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("archive_service: lock: %w", err)
		}
		defer unlock()
	}

	cutoff := s.now().UTC().Add(-s.retention)
	s.logger.InfoContext(ctx, "archive_service: starting run",
		slog.Time("cutoff", cutoff),
		slog.Duration("retention", s.retention),
	)

	n, err := s.archiver.ArchiveScenarios(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("archive_service: scenarios before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	s.logger.InfoContext(ctx, "archive_service: run complete", slog.Int64("archived", n))
	if n > 0 {
		s.events.publish(ctx, domain.ChannelSystem, "", domain.NewEvent(domain.EventArchiveComplete, map[string]any{
			"archived": n,
			"cutoff":   cutoff.Format(time.RFC3339),
		}))
	}
	return n, nil
}

// Run archives every interval, and on every trigger, until ctx is
// cancelled. Failed runs are logged and retried on the next tick.
func (s *ArchiveService) Run(ctx context.Context, interval time.Duration) error {
	s.logger.InfoContext(ctx, "archive_service: periodic archiving started", slog.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "archive_service: periodic archiving stopped")
			return nil
		case <-ticker.C:
			s.runLogged(ctx, "schedule")
		case <-s.trigger:
			s.runLogged(ctx, "trigger")
		}
	}
}

func (s *ArchiveService) runLogged(ctx context.Context, cause string) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "archive_service: run failed",
			slog.String("cause", cause),
			slog.String("error", err.Error()),
		)
	}
}

// List returns the archive objects written so far.
func (s *ArchiveService) List(ctx context.Context) ([]domain.BlobInfo, error) {
	infos, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("archive_service: list: %w", err)
	}
	return infos, nil
}

// Open returns the body of the archive object called name under the
// archive prefix, e.g. "2026-01.jsonl". Names the archiver would never
// write are reported as not found. The caller closes the body.
func (s *ArchiveService) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !archiveName.MatchString(name) {
		return nil, fmt.Errorf("archive_service: open %q: %w", name, domain.ErrNotFound)
	}
	body, err := s.blobs.Get(ctx, path.Join(s.prefix, name))
	if err != nil {
		return nil, fmt.Errorf("archive_service: open %q: %w", name, err)
	}
	return body, nil
}
