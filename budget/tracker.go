// Package budget tracks a loss-sensitive daily risk ceiling.
//
// The ceiling follows a "Reverse Fibonacci" ladder: a fixed descending
// sequence of daily loss limits indexed by consecutive losing days. A
// losing day steps one rung down, a day whose net profit clears the
// reset threshold jumps back to the top rung, and a small winning day
// leaves the ladder where it is.
package budget

import (
	"fmt"
	"math"
	"time"
)

// DefaultLadder is the daily loss ceiling by consecutive-loss-day
// count. Indexing clamps at the last rung.
var DefaultLadder = []float64{500, 300, 200, 100}

// DefaultResetProfitThreshold is the net daily profit required to
// reset the ladder to rung zero.
const DefaultResetProfitThreshold = 16.0

// Config holds the static ladder parameters.
type Config struct {
	Ladder               []float64 `json:"ladder" yaml:"ladder"`
	ResetProfitThreshold float64   `json:"reset_profit_threshold" yaml:"reset_profit_threshold"`
}

// DefaultConfig returns the standard ladder configuration.
func DefaultConfig() Config {
	return Config{
		Ladder:               append([]float64(nil), DefaultLadder...),
		ResetProfitThreshold: DefaultResetProfitThreshold,
	}
}

// Execution is a single realized trade outcome, used by the
// continuous-sizing convenience ScaledPositionSize.
type Execution struct {
	Time time.Time
	PnL  float64
}

// State is the full serializable ladder state for one trading-day
// lineage. It is an explicit value rather than hidden tracker
// internals so it can be snapshotted for replay and debugging.
type State struct {
	Day                 time.Time `json:"day" yaml:"day"`
	ConsecutiveLossDays int       `json:"consecutive_loss_days" yaml:"consecutive_loss_days"`
	RealizedPnL         float64   `json:"realized_pnl" yaml:"realized_pnl"`
	OpenPositions       int       `json:"open_positions" yaml:"open_positions"`
}

// Tracker maintains the daily loss budget for a single account or
// strategy lineage. It is not safe for concurrent use; each
// account/strategy pair owns its own Tracker.
type Tracker struct {
	ladder         []float64
	resetThreshold float64

	state   State
	started bool
}

// NewTracker returns a Tracker using cfg, falling back to the default
// ladder and reset threshold for zero values.
func NewTracker(cfg Config) *Tracker {
	ladder := cfg.Ladder
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}
	threshold := cfg.ResetProfitThreshold
	if threshold <= 0 {
		threshold = DefaultResetProfitThreshold
	}
	return &Tracker{
		ladder:         append([]float64(nil), ladder...),
		resetThreshold: threshold,
	}
}

// day truncates t to its calendar date in UTC.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return day(a).Equal(day(b))
}

// rung returns the ladder value for a consecutive-loss-day count,
// clamped at the final (smallest) rung.
func (tr *Tracker) rung(lossDays int) float64 {
	if lossDays < 0 {
		lossDays = 0
	}
	if lossDays >= len(tr.ladder) {
		lossDays = len(tr.ladder) - 1
	}
	return tr.ladder[lossDays]
}

// tracked reports whether date is the day the tracker is currently
// accumulating.
func (tr *Tracker) tracked(date time.Time) bool {
	return tr.started && sameDay(tr.state.Day, date)
}

// DailyLimit returns the day's loss ceiling. Dates outside the
// tracked lineage day return the full top-rung budget.
func (tr *Tracker) DailyLimit(date time.Time) float64 {
	if !tr.tracked(date) {
		return tr.ladder[0]
	}
	return tr.rung(tr.state.ConsecutiveLossDays)
}

// Remaining returns the day's limit minus losses recorded so far
// today, floored at zero. Losses are read off the day's net realized
// P&L, so an earlier win offsets a later loss; wins never enlarge the
// budget beyond the daily limit.
func (tr *Tracker) Remaining(date time.Time) float64 {
	limit := tr.DailyLimit(date)
	if !tr.tracked(date) {
		return limit
	}
	losses := 0.0
	if tr.state.RealizedPnL < 0 {
		losses = -tr.state.RealizedPnL
	}
	return math.Max(0, limit-losses)
}

// StartNewDay closes out the tracked day, applies the ladder
// transition from its accumulated net P&L, and begins accumulating
// for date. Transitions: net profit at or above the reset threshold
// resets to rung zero; any net loss advances exactly one rung; a
// small net win leaves the rung unchanged.
func (tr *Tracker) StartNewDay(date time.Time) {
	if tr.started && !sameDay(tr.state.Day, date) {
		switch {
		case tr.state.RealizedPnL >= tr.resetThreshold:
			tr.state.ConsecutiveLossDays = 0
		case tr.state.RealizedPnL < 0:
			tr.state.ConsecutiveLossDays++
		}
	}
	tr.state.Day = day(date)
	tr.state.RealizedPnL = 0
	tr.state.OpenPositions = 0
	tr.started = true
}

// RecordTradeResult accumulates a signed realized P&L for date. A
// date the tracker has not seen yet starts (or rolls to) that day
// first, so outcomes are never silently dropped.
func (tr *Tracker) RecordTradeResult(date time.Time, pnl float64) {
	if !tr.tracked(date) {
		tr.StartNewDay(date)
	}
	tr.state.RealizedPnL += pnl
}

// RecordTradeLoss records a loss of the given magnitude for date.
func (tr *Tracker) RecordTradeLoss(date time.Time, amount float64) {
	tr.RecordTradeResult(date, -math.Abs(amount))
}

// RecordPositionOpened notes an opened position for date. The probe
// sizing rule only fires when the day has no open positions.
func (tr *Tracker) RecordPositionOpened(date time.Time) {
	if !tr.tracked(date) {
		tr.StartNewDay(date)
	}
	tr.state.OpenPositions++
}

// RecordPositionClosed notes a closed position for date.
func (tr *Tracker) RecordPositionClosed(date time.Time) {
	if !tr.tracked(date) {
		tr.StartNewDay(date)
	}
	if tr.state.OpenPositions > 0 {
		tr.state.OpenPositions--
	}
}

// OpenPositions returns the count of open positions for date.
func (tr *Tracker) OpenPositions(date time.Time) int {
	if !tr.tracked(date) {
		return 0
	}
	return tr.state.OpenPositions
}

// RealizedPnL returns the accumulated net P&L for date, zero for any
// other date.
func (tr *Tracker) RealizedPnL(date time.Time) float64 {
	if !tr.tracked(date) {
		return 0
	}
	return tr.state.RealizedPnL
}

// ConsecutiveLossDays returns the current loss-day streak.
func (tr *Tracker) ConsecutiveLossDays() int {
	return tr.state.ConsecutiveLossDays
}

// Snapshot returns a copy of the current state.
func (tr *Tracker) Snapshot() State {
	return tr.state
}

// Restore replaces the tracker state, e.g. after a process restart.
func (tr *Tracker) Restore(s State) {
	tr.state = s
	tr.state.Day = day(s.Day)
	tr.started = !s.Day.IsZero()
}

// ScaledPositionSize is the continuous-sizing convenience for callers
// that size in fractional units rather than whole contracts. It scans
// the most recent executions on their trading day: once the day's
// cumulative profit clears the reset threshold the full base size is
// restored; otherwise the base is scaled by the ladder ratio for the
// run of consecutive losses ending at the latest execution.
func (tr *Tracker) ScaledPositionSize(base float64, recent []Execution) float64 {
	if base <= 0 || len(recent) == 0 {
		return base
	}
	latest := recent[len(recent)-1]

	total := 0.0
	for _, ex := range recent {
		if sameDay(ex.Time, latest.Time) {
			total += ex.PnL
		}
	}
	if total >= tr.resetThreshold {
		return base
	}

	losses := 0
	for i := len(recent) - 1; i >= 0; i-- {
		if !sameDay(recent[i].Time, latest.Time) {
			break
		}
		if recent[i].PnL >= 0 {
			break
		}
		losses++
	}
	return base * tr.rung(losses) / tr.ladder[0]
}

// String summarizes the tracked day, mainly for logs.
func (tr *Tracker) String() string {
	if !tr.started {
		return "budget: no day started"
	}
	return fmt.Sprintf("budget: day=%s rung=%d limit=%.2f pnl=%.2f open=%d",
		tr.state.Day.Format("2006-01-02"),
		tr.state.ConsecutiveLossDays,
		tr.rung(tr.state.ConsecutiveLossDays),
		tr.state.RealizedPnL,
		tr.state.OpenPositions)
}
