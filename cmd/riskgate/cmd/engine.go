package cmd

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/riskgate/audit"
	"github.com/rustyeddy/riskgate/budget"
	"github.com/rustyeddy/riskgate/config"
	"github.com/rustyeddy/riskgate/gate"
	"github.com/rustyeddy/riskgate/metrics"
	"github.com/rustyeddy/riskgate/sizing"
)

// engine bundles the assembled components a command needs.
type engine struct {
	tracker *budget.Tracker
	sizer   *sizing.Sizer
	gate    *gate.Gate
	store   *audit.SQLite // nil unless audit.db_path is set
}

// buildEngine assembles tracker, sizer and gate from cfg, restoring
// the budget state snapshot when --state is given.
func buildEngine(cfg *config.Config) (*engine, error) {
	tracker := budget.NewTracker(cfg.Budget)
	if statePath != "" {
		st, err := budget.LoadState(statePath)
		if err != nil {
			return nil, err
		}
		tracker.Restore(st)
	}

	sizer := sizing.NewSizer(tracker,
		sizing.NewPerTradeRisk(cfg.Sizing.MaxTradeRiskFraction),
		cfg.Sizing.Params())

	m := metrics.New(prometheus.NewRegistry())
	sizer.SetObserver(m)

	g := gate.New(cfg.Gate, tracker, sizer, log.Logger).WithMetrics(m)

	e := &engine{tracker: tracker, sizer: sizer, gate: g}
	if cfg.Audit.DBPath != "" {
		store, err := audit.NewSQLite(cfg.Audit.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		g.WithAuditSink(store)
		e.store = store
	}
	return e, nil
}

func (e *engine) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// parseDate accepts YYYY-MM-DD, defaulting to today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date: %w", err)
	}
	return t, nil
}
