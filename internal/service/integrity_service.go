package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/blobstore"
	"github.com/yogull/yogull-social-platform-sub001/internal/counters"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Report is the result of an integrity scan or repair.
type Report struct {
	Drift   []counters.Drift `json:"drift"`
	Orphans []uint           `json:"orphans"`
	// Deleted lists orphan files removed by a repair.
	Deleted []uint `json:"deleted,omitempty"`
}

// IntegrityService finds and repairs denormalized counter drift and
// unreferenced media files.
type IntegrityService struct {
	store       *repository.Store
	blobs       blobstore.Store
	orphanGrace time.Duration
	now         func() time.Time
}

func NewIntegrityService(store *repository.Store, blobs blobstore.Store, orphanGrace time.Duration) *IntegrityService {
	if blobs == nil {
		blobs = blobstore.None{}
	}
	return &IntegrityService{store: store, blobs: blobs, orphanGrace: orphanGrace, now: time.Now}
}

// Scan reports drift and orphans without writing.
func (s *IntegrityService) Scan(ctx context.Context) (report *Report, err error) {
	span, ctx := observability.NewSpan(ctx, "IntegrityService.Scan")
	defer func() { span.Finish(err) }()

	report = &Report{Drift: []counters.Drift{}, Orphans: []uint{}}
	for _, c := range counters.Registry {
		drift, err := counters.Scan(ctx, s.store.DB(), c)
		if err != nil {
			return nil, err
		}
		observability.CounterDriftRows.WithLabelValues(c.Name()).Set(float64(len(drift)))
		report.Drift = append(report.Drift, drift...)
	}

	orphans, err := s.store.Media.ListOrphans(ctx, s.now().Add(-s.orphanGrace))
	if err != nil {
		return nil, err
	}
	for _, f := range orphans {
		report.Orphans = append(report.Orphans, f.ID)
	}
	observability.OrphanFiles.Set(float64(len(orphans)))

	span.AddAttributes(
		attribute.Int("integrity.drift", len(report.Drift)),
		attribute.Int("integrity.orphans", len(report.Orphans)))
	return report, nil
}

// Repair recounts every drifted counter and deletes orphaned files, then
// their blobs. A file re-attached since the scan is left alone.
func (s *IntegrityService) Repair(ctx context.Context) (report *Report, err error) {
	span, ctx := observability.NewSpan(ctx, "IntegrityService.Repair")
	defer func() { span.Finish(err) }()

	report = &Report{Drift: []counters.Drift{}, Orphans: []uint{}}
	for _, c := range counters.Registry {
		fixed, err := counters.RecountAll(ctx, s.store.DB(), c)
		if err != nil {
			return nil, err
		}
		observability.CounterDriftRows.WithLabelValues(c.Name()).Set(0)
		report.Drift = append(report.Drift, fixed...)
	}

	orphans, err := s.store.Media.ListOrphans(ctx, s.now().Add(-s.orphanGrace))
	if err != nil {
		return nil, err
	}
	for _, f := range orphans {
		report.Orphans = append(report.Orphans, f.ID)
		key, deleted, err := s.store.Media.DeleteIfUnreferenced(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		if !deleted {
			continue
		}
		report.Deleted = append(report.Deleted, f.ID)
		if err := s.blobs.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete orphan blob",
				slog.Uint64("file_id", uint64(f.ID)),
				slog.String("backend", s.blobs.Name()),
				slog.String("error", err.Error()))
		}
	}
	observability.OrphanFiles.Set(float64(len(orphans) - len(report.Deleted)))

	middleware.Logger.InfoContext(ctx, "integrity repair finished",
		slog.Int("drift_fixed", len(report.Drift)),
		slog.Int("orphans_deleted", len(report.Deleted)))
	return report, nil
}

// Run scans, or repairs when repair is set, every interval until ctx is
// cancelled. Failures are logged and the loop continues.
func (s *IntegrityService) Run(ctx context.Context, interval time.Duration, repair bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx, repair)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *IntegrityService) runOnce(ctx context.Context, repair bool) {
	var (
		report *Report
		err    error
	)
	if repair {
		report, err = s.Repair(ctx)
	} else {
		report, err = s.Scan(ctx)
	}
	if err != nil {
		if ctx.Err() == nil {
			middleware.Logger.ErrorContext(ctx, "integrity check failed", slog.String("error", err.Error()))
		}
		return
	}
	if !repair && (len(report.Drift) > 0 || len(report.Orphans) > 0) {
		middleware.Logger.WarnContext(ctx, "integrity drift detected",
			slog.Int("drift", len(report.Drift)),
			slog.Int("orphans", len(report.Orphans)))
	}
}
