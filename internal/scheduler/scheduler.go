// Package scheduler runs the periodic background tasks of the client:
// packet capture pruning and connection stats snapshots.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/network"
	"github.com/cfclient-project/cfclient/internal/util"
)

// ConnectionSource reports the connection state and transport counters.
type ConnectionSource interface {
	State() events.ConnectionState
	Stats() network.Stats
}

// Pruner deletes captured packets older than a cutoff.
type Pruner interface {
	Prune(cutoff time.Time) (int64, error)
}

// StatsSnapshot is one periodic stats sample.
type StatsSnapshot struct {
	Time      time.Time              `json:"time"`
	State     events.ConnectionState `json:"state"`
	Transport network.Stats          `json:"transport"`
	Process   *util.ProcessUsage     `json:"process,omitempty"`
}

// Scheduler manages periodic background tasks.
type Scheduler struct {
	cfg    *config.Config
	conn   ConnectionSource
	pruner Pruner

	mu    sync.Mutex
	sinks []func(StatsSnapshot)
	last  StatsSnapshot
}

// NewScheduler creates a new task scheduler. pruner may be nil when packet
// capture is disabled.
func NewScheduler(cfg *config.Config, conn ConnectionSource, pruner Pruner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		conn:   conn,
		pruner: pruner,
	}
}

// OnSnapshot registers a receiver of stats snapshots.
func (s *Scheduler) OnSnapshot(fn func(StatsSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, fn)
}

// Start runs all scheduled tasks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	timers := s.cfg.GetApplicationData().Timers
	log.Info().Msg("scheduler started")

	var wg sync.WaitGroup
	if s.pruner != nil && timers.CapturePruneInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.every(ctx, time.Duration(timers.CapturePruneInterval)*time.Second, func() {
				if _, err := s.PruneCapture(); err != nil {
					log.Warn().Err(err).Msg("capture pruning failed")
				}
			})
		}()
	}

	if timers.StatsSnapshotInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.every(ctx, time.Duration(timers.StatsSnapshotInterval)*time.Second, func() { s.TakeSnapshot() })
		}()
	}

	<-ctx.Done()
	wg.Wait()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// PruneCapture deletes captured packets older than the retention period.
func (s *Scheduler) PruneCapture() (int64, error) {
	if s.pruner == nil {
		return 0, nil
	}
	retention := time.Duration(s.cfg.GetApplicationData().Capture.RetentionHours) * time.Hour
	deleted, err := s.pruner.Prune(time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("packet capture pruned")
	return deleted, nil
}

// TakeSnapshot samples the connection and process and hands the snapshot
// to every receiver.
func (s *Scheduler) TakeSnapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Time:      time.Now(),
		State:     s.conn.State(),
		Transport: s.conn.Stats(),
	}
	if usage, err := util.GetProcessUsage(); err == nil {
		snap.Process = usage
	} else {
		log.Debug().Err(err).Msg("process usage unavailable")
	}

	s.mu.Lock()
	s.last = snap
	sinks := append([]func(StatsSnapshot){}, s.sinks...)
	s.mu.Unlock()

	log.Debug().
		Stringer("state", snap.State).
		Uint64("frames_in", snap.Transport.FramesIn).
		Uint64("frames_out", snap.Transport.FramesOut).
		Msg("stats snapshot")

	for _, fn := range sinks {
		fn(snap)
	}
	return snap
}

// LastSnapshot returns the latest snapshot, zero before the first one.
func (s *Scheduler) LastSnapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
