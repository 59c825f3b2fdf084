package kpi

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/elettorale/seggio/pkg/async"
	"github.com/elettorale/seggio/pkg/observability"
)

// snapshot is one consistent pre-read of both dashboard ranges
type snapshot struct {
	Data     []Row
	Sections []SectionInfo
	TakenAt  time.Time
}

// Snapshotter pre-reads the dashboard ranges on a cron schedule and keeps
// the latest result behind an atomic pointer, so dashboard polling does not
// multiply into spreadsheet reads. When no snapshot has been taken yet the
// accessors fall back to a live read.
type Snapshotter struct {
	service *Service
	logger  *observability.Logger
	cron    *cron.Cron
	current atomic.Pointer[snapshot]
	timeout time.Duration
}

// NewSnapshotter schedules a refresh per cronSpec (e.g. "@every 2m").
// Start must be called to begin refreshing.
func NewSnapshotter(service *Service, logger *observability.Logger, cronSpec string, timeout time.Duration) (*Snapshotter, error) {
	s := &Snapshotter{
		service: service,
		logger:  logger,
		cron:    cron.New(),
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(cronSpec, s.scheduledRefresh); err != nil {
		return nil, err
	}
	return s, nil
}

// Start takes an immediate snapshot and begins the schedule
func (s *Snapshotter) Start() {
	s.refresh()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish
func (s *Snapshotter) Stop() {
	<-s.cron.Stop().Done()
}

// Data returns the snapshotted Dati projection, reading live when no
// snapshot is available yet.
func (s *Snapshotter) Data(ctx context.Context) ([]Row, error) {
	if snap := s.current.Load(); snap != nil {
		return snap.Data, nil
	}
	return s.service.Data(ctx)
}

// Sections returns the snapshotted section registry, reading live when no
// snapshot is available yet.
func (s *Snapshotter) Sections(ctx context.Context) ([]SectionInfo, error) {
	if snap := s.current.Load(); snap != nil {
		return snap.Sections, nil
	}
	return s.service.Sections(ctx)
}

// TakenAt reports the age of the current snapshot; the zero time means no
// snapshot has succeeded yet.
func (s *Snapshotter) TakenAt() time.Time {
	if snap := s.current.Load(); snap != nil {
		return snap.TakenAt
	}
	return time.Time{}
}

// scheduledRefresh runs the refresh off the cron goroutine so a panic in a
// refresh never takes the scheduler down with it.
func (s *Snapshotter) scheduledRefresh() {
	async.SafeGo(context.Background(), s.timeout, "kpi-snapshot", func(ctx context.Context) error {
		s.refreshContext(ctx)
		return nil
	})
}

// refresh reads both ranges and swaps the snapshot in. A failed refresh
// keeps the previous snapshot rather than serving partial data.
func (s *Snapshotter) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.refreshContext(ctx)
}

func (s *Snapshotter) refreshContext(ctx context.Context) {
	data, err := s.service.Data(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("kpi snapshot refresh failed reading dati")
		return
	}
	sections, err := s.service.Sections(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("kpi snapshot refresh failed reading sezioni")
		return
	}

	s.current.Store(&snapshot{
		Data:     data,
		Sections: sections,
		TakenAt:  time.Now(),
	})
	s.logger.WithFields(map[string]interface{}{
		"dati_rows":    len(data),
		"sezioni_rows": len(sections),
	}).Debug("kpi snapshot refreshed")
}
