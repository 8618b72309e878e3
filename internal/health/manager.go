// Package health implements the connection watchdog. It reports
// connections that stopped delivering frames and negotiations the server
// never answered. Reads themselves have no timeout; the watchdog only
// observes.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cfclient-project/cfclient/internal/config"
	"github.com/cfclient-project/cfclient/internal/connector"
	"github.com/cfclient-project/cfclient/internal/events"
	"github.com/cfclient-project/cfclient/internal/network"
	"github.com/cfclient-project/cfclient/internal/util"
)

// Source is the connection the watchdog observes.
type Source interface {
	State() events.ConnectionState
	Stats() network.Stats
	Negotiation() connector.NegotiationStatus
}

// Issue is one problem found by a check.
type Issue struct {
	Check   string    `json:"check"`
	Message string    `json:"message"`
	Since   time.Time `json:"since"`
}

// Report is the result of one watchdog run.
type Report struct {
	CheckedAt time.Time          `json:"checked_at"`
	State     string             `json:"state"`
	Issues    []Issue            `json:"issues"`
	Process   *util.ProcessUsage `json:"process,omitempty"`
}

// Healthy reports whether no issue was found.
func (r Report) Healthy() bool {
	return len(r.Issues) == 0
}

// Manager runs the watchdog checks periodically.
type Manager struct {
	cfg    *config.Config
	source Source
	now    func() time.Time

	mu   sync.RWMutex
	last Report
}

// NewManager creates a watchdog for source.
func NewManager(cfg *config.Config, source Source) *Manager {
	return &Manager{
		cfg:    cfg,
		source: source,
		now:    time.Now,
	}
}

// Start runs the checks every health_check_interval_sec until ctx is
// cancelled.
func (m *Manager) Start(ctx context.Context) {
	interval := m.cfg.GetApplicationData().Timers.HealthCheckInterval
	if interval <= 0 {
		log.Info().Msg("health checks disabled")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	log.Info().Int("interval_sec", interval).Msg("health check manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("health check manager stopped")
			return
		case <-ticker.C:
			m.Run()
		}
	}
}

// Run performs all checks once, logs the issues found and returns the
// report.
func (m *Manager) Run() Report {
	timers := m.cfg.GetApplicationData().Timers
	now := m.now()
	state := m.source.State()

	report := Report{CheckedAt: now, State: state.String(), Issues: []Issue{}}
	if issue, ok := m.checkIdle(state, now, time.Duration(timers.IdleWarn)*time.Second); ok {
		report.Issues = append(report.Issues, issue)
	}
	if issue, ok := m.checkNegotiation(now, time.Duration(timers.NegotiationWarn)*time.Second); ok {
		report.Issues = append(report.Issues, issue)
	}
	if usage, err := util.GetProcessUsage(); err == nil {
		report.Process = usage
	}

	for _, issue := range report.Issues {
		log.Warn().
			Str("check", issue.Check).
			Time("since", issue.Since).
			Msg(issue.Message)
	}

	m.mu.Lock()
	m.last = report
	m.mu.Unlock()
	return report
}

// LastReport returns the latest report, zero before the first run.
func (m *Manager) LastReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// checkIdle flags a connected session that has not received a frame for
// longer than limit.
func (m *Manager) checkIdle(state events.ConnectionState, now time.Time, limit time.Duration) (Issue, bool) {
	if limit <= 0 || state != events.StateConnected {
		return Issue{}, false
	}
	stats := m.source.Stats()
	since := stats.LastRead
	if since.IsZero() {
		since = stats.ConnectedAt
	}
	if since.IsZero() || now.Sub(since) <= limit {
		return Issue{}, false
	}
	return Issue{
		Check:   "idle",
		Message: fmt.Sprintf("no frame received for %s", now.Sub(since).Round(time.Second)),
		Since:   since,
	}, true
}

// checkNegotiation flags a mapsize or num_look_objects request that has
// been pending for longer than limit.
func (m *Manager) checkNegotiation(now time.Time, limit time.Duration) (Issue, bool) {
	if limit <= 0 {
		return Issue{}, false
	}
	st := m.source.Negotiation()
	if st.PendingSince.IsZero() || now.Sub(st.PendingSince) <= limit {
		return Issue{}, false
	}

	what := "map size " + st.PendingMap
	if st.PendingMap == "" {
		what = fmt.Sprintf("look object count %d", st.PendingLook)
	}
	return Issue{
		Check:   "negotiation",
		Message: fmt.Sprintf("%s unanswered for %s", what, now.Sub(st.PendingSince).Round(time.Second)),
		Since:   st.PendingSince,
	}, true
}
