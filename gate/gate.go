// Package gate approves or rejects proposed trade executions against
// the daily risk budget and records an auditable decision trail.
package gate

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/riskgate/audit"
	"github.com/rustyeddy/riskgate/budget"
	"github.com/rustyeddy/riskgate/sizing"
)

// Candidate is a fully specified trade proposal: the strategy shape
// plus the execution details upstream scoring supplies.
type Candidate struct {
	Symbol         string      `json:"symbol" yaml:"symbol"`
	Spec           sizing.Spec `json:"spec" yaml:"spec"`
	Contracts      int         `json:"contracts" yaml:"contracts"`
	LiquidityScore float64     `json:"liquidity_score" yaml:"liquidity_score"` // 0..1
	BidAskSpread   float64     `json:"bid_ask_spread" yaml:"bid_ask_spread"`
	ProposedAt     time.Time   `json:"proposed_at" yaml:"proposed_at"`
}

// Reason is the closed set of rejection causes. Rejections are
// expected, frequent outcomes, not errors.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidStructure   Reason = "INVALID_STRUCTURE"
	ReasonInsufficientBudget Reason = "INSUFFICIENT_BUDGET"
	ReasonHardCapExceeded    Reason = "HARD_CAP_EXCEEDED"
	ReasonLiquidityTooLow    Reason = "LIQUIDITY_TOO_LOW"
	ReasonSpreadTooWide      Reason = "SPREAD_TOO_WIDE"
)

// Result is the gate's decision for one candidate.
type Result struct {
	Approved       bool
	MaxLossAtEntry float64
	Reason         Reason
	Summary        string
}

// Config holds the gate's execution-quality thresholds.
type Config struct {
	// MinLiquidityScore below which candidates are rejected; zero
	// disables the check.
	MinLiquidityScore float64 `json:"min_liquidity_score" yaml:"min_liquidity_score"`
	// MaxBidAskSpread above which candidates are rejected; zero
	// disables the check.
	MaxBidAskSpread float64 `json:"max_bid_ask_spread" yaml:"max_bid_ask_spread"`
	// PerTradeMaxLoss is the absolute worst-case ceiling handed to
	// the cap validator; zero disables it.
	PerTradeMaxLoss float64 `json:"per_trade_max_loss" yaml:"per_trade_max_loss"`
	// AuditRetention bounds the in-memory audit log; zero keeps
	// everything.
	AuditRetention int `json:"audit_retention" yaml:"audit_retention"`
}

// Metrics receives gate decisions, e.g. the prometheus exporter.
type Metrics interface {
	Decision(approved bool, reason string)
	RemainingBudget(remaining float64)
}

// Gate orchestrates sizing consistency, the cap validator, and the
// audit trail for candidate executions. Single-threaded per trading
// day, like the tracker it wraps.
type Gate struct {
	cfg       Config
	budget    *budget.Tracker
	sizer     *sizing.Sizer
	validator *CapValidator
	log       *audit.Log
	logger    zerolog.Logger
	metrics   Metrics
}

// New builds a gate over a shared tracker and sizer.
func New(cfg Config, b *budget.Tracker, s *sizing.Sizer, logger zerolog.Logger) *Gate {
	return &Gate{
		cfg:       cfg,
		budget:    b,
		sizer:     s,
		validator: NewCapValidator(b, cfg.PerTradeMaxLoss),
		log:       audit.NewLog(cfg.AuditRetention),
		logger:    logger,
	}
}

// WithAuditSink attaches a durable sink (e.g. audit.SQLite) behind
// the in-memory log.
func (g *Gate) WithAuditSink(s audit.Sink) *Gate {
	g.log.WithSink(s)
	return g
}

// WithMetrics attaches a decision metrics receiver.
func (g *Gate) WithMetrics(m Metrics) *Gate {
	g.metrics = m
	return g
}

// ValidateExecution decides whether the candidate may execute on
// date. An audit record is appended whichever way the decision goes.
func (g *Gate) ValidateExecution(c Candidate, date time.Time) Result {
	res := g.decide(c, date)

	rec := audit.Record{
		T:               c.ProposedAt,
		Symbol:          c.Symbol,
		Width:           c.Spec.EffectiveWidth(),
		Credit:          c.Spec.NetCredit,
		Contracts:       c.Contracts,
		DailyCap:        g.budget.DailyLimit(date),
		RemainingBudget: g.budget.Remaining(date),
		Decision:        audit.Rejected,
	}
	if rec.T.IsZero() {
		rec.T = time.Now().UTC()
	}
	if res.Approved {
		rec.Decision = audit.Approved
	} else {
		rec.Reason = string(res.Reason)
	}
	if err := g.log.Append(rec); err != nil {
		g.logger.Error().Err(err).Str("sym", c.Symbol).Msg("audit append failed")
	}

	evt := g.logger.Info()
	if !res.Approved {
		evt = g.logger.Warn()
	}
	evt.Str("sym", c.Symbol).
		Int("contracts", c.Contracts).
		Float64("max_loss", res.MaxLossAtEntry).
		Float64("remaining", rec.RemainingBudget).
		Bool("approved", res.Approved).
		Str("reason", string(res.Reason)).
		Msg("execution gate decision")

	if g.metrics != nil {
		g.metrics.Decision(res.Approved, string(res.Reason))
		g.metrics.RemainingBudget(rec.RemainingBudget)
	}
	return res
}

func (g *Gate) decide(c Candidate, date time.Time) Result {
	if c.Contracts <= 0 || c.Spec.Validate() != nil {
		return rejected(ReasonInvalidStructure,
			fmt.Sprintf("%s: structurally invalid candidate (%d contracts)", c.Symbol, c.Contracts))
	}
	if g.cfg.MinLiquidityScore > 0 && c.LiquidityScore < g.cfg.MinLiquidityScore {
		return rejected(ReasonLiquidityTooLow,
			fmt.Sprintf("%s: liquidity %.2f below minimum %.2f", c.Symbol, c.LiquidityScore, g.cfg.MinLiquidityScore))
	}
	if g.cfg.MaxBidAskSpread > 0 && c.BidAskSpread > g.cfg.MaxBidAskSpread {
		return rejected(ReasonSpreadTooWide,
			fmt.Sprintf("%s: spread %.2f above maximum %.2f", c.Symbol, c.BidAskSpread, g.cfg.MaxBidAskSpread))
	}

	// Consistency with today's derivable sizing.
	if err := g.sizer.ValidateContracts(date, c.Spec, c.Contracts); err != nil {
		switch {
		case errors.Is(err, sizing.ErrHardCapExceeded):
			return rejected(ReasonHardCapExceeded,
				fmt.Sprintf("%s: %v", c.Symbol, err))
		case errors.Is(err, sizing.ErrInsufficientBudget):
			return rejected(ReasonInsufficientBudget,
				fmt.Sprintf("%s: %v", c.Symbol, err))
		default:
			return rejected(ReasonInvalidStructure,
				fmt.Sprintf("%s: %v", c.Symbol, err))
		}
	}

	// Authoritative loss-fit check, independent arithmetic.
	fits, maxLoss := g.validator.Validate(c, date)
	if !fits {
		return Result{
			Approved:       false,
			MaxLossAtEntry: maxLoss,
			Reason:         ReasonInsufficientBudget,
			Summary: fmt.Sprintf("%s: worst case %.2f does not fit remaining budget %.2f",
				c.Symbol, maxLoss, g.budget.Remaining(date)),
		}
	}

	return Result{
		Approved:       true,
		MaxLossAtEntry: maxLoss,
		Summary: fmt.Sprintf("%s: %d contracts approved, worst case %.2f within remaining %.2f",
			c.Symbol, c.Contracts, maxLoss, g.budget.Remaining(date)),
	}
}

func rejected(reason Reason, summary string) Result {
	return Result{Approved: false, Reason: reason, Summary: summary}
}

// AuditRecords returns the most recent n audit records in insertion
// order.
func (g *Gate) AuditRecords(n int) []audit.Record {
	return g.log.Recent(n)
}

// ExportAuditJSON writes the retained audit trail to w as line-
// oriented JSON.
func (g *Gate) ExportAuditJSON(w io.Writer) error {
	return g.log.ExportJSONL(w)
}
