package sizing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rustyeddy/riskgate/budget"
)

// PerTradeRisk holds the fraction of the day's remaining budget a
// single trade may consume under normal conditions. Pure
// configuration, no day state.
type PerTradeRisk struct {
	MaxTradeRiskFraction float64
}

// DefaultMaxTradeRiskFraction is the normal per-trade share of the
// remaining daily budget.
const DefaultMaxTradeRiskFraction = 0.45

// NewPerTradeRisk clamps the fraction into (0, 1], defaulting when
// unset.
func NewPerTradeRisk(fraction float64) PerTradeRisk {
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultMaxTradeRiskFraction
	}
	return PerTradeRisk{MaxTradeRiskFraction: fraction}
}

// Params are the sizing constants layered over the naive
// fraction-of-budget division.
type Params struct {
	// LowCapThreshold: at or below this daily limit the normal
	// fraction under-allocates so badly that one contract never
	// fits, so LowCapFraction is used instead.
	LowCapThreshold float64 `json:"low_cap_threshold" yaml:"low_cap_threshold"`
	LowCapFraction  float64 `json:"low_cap_fraction" yaml:"low_cap_fraction"`

	// SafetyBuffer is the haircut applied to the allowance before
	// division, absorbing estimation error.
	SafetyBuffer float64 `json:"safety_buffer" yaml:"safety_buffer"`

	// HardCapContracts is absolute; no fallback may exceed it.
	HardCapContracts int `json:"hard_cap_contracts" yaml:"hard_cap_contracts"`

	// MinWidthPoints is the narrowest width the scale-to-fit retry
	// may assume.
	MinWidthPoints float64 `json:"min_width_points" yaml:"min_width_points"`
}

// DefaultParams returns the production sizing constants.
func DefaultParams() Params {
	return Params{
		LowCapThreshold:  150,
		LowCapFraction:   0.80,
		SafetyBuffer:     0.05,
		HardCapContracts: 8,
		MinWidthPoints:   1.0,
	}
}

// Derivation tags how the final contract count was produced, so
// callers can switch exhaustively instead of testing loose booleans.
type Derivation string

const (
	// DerivationStandard: plain fraction-of-budget division.
	DerivationStandard Derivation = "standard"
	// DerivationProbe: single-contract fallback when division hit
	// zero but the absolute remaining budget tolerates one contract.
	DerivationProbe Derivation = "probe"
	// DerivationScaleToFit: one retry at the minimum width after
	// both division and probe produced nothing.
	DerivationScaleToFit Derivation = "scale_to_fit"
)

// Result is the outcome of one sizing call. Values are immutable
// once returned.
type Result struct {
	Valid     bool
	Contracts int

	// DerivedContracts is the pre-fallback, pre-clamp division
	// result.
	DerivedContracts int

	Derivation Derivation
	// DynamicFraction records the low-cap fraction override; it is
	// orthogonal to the derivation path and may combine with any of
	// them.
	DynamicFraction bool

	AppliedFraction     float64
	SafetyBufferApplied bool
	MaxLossPerContract  float64
	Allowance           float64
	Remaining           float64

	Details string
}

// Observer receives sizing outcomes, e.g. for metrics.
type Observer interface {
	SizingDerived(derivation string, dynamicFraction bool)
}

// Sizer derives whole-number contract counts from the daily budget.
type Sizer struct {
	params   Params
	perTrade PerTradeRisk
	budget   *budget.Tracker
	obs      Observer
}

// NewSizer builds a Sizer over the given tracker. Zero-valued params
// fields fall back to defaults.
func NewSizer(b *budget.Tracker, perTrade PerTradeRisk, params Params) *Sizer {
	def := DefaultParams()
	if params.LowCapThreshold <= 0 {
		params.LowCapThreshold = def.LowCapThreshold
	}
	if params.LowCapFraction <= 0 || params.LowCapFraction > 1 {
		params.LowCapFraction = def.LowCapFraction
	}
	if params.SafetyBuffer < 0 || params.SafetyBuffer >= 1 {
		params.SafetyBuffer = def.SafetyBuffer
	}
	if params.HardCapContracts <= 0 {
		params.HardCapContracts = def.HardCapContracts
	}
	if params.MinWidthPoints <= 0 {
		params.MinWidthPoints = def.MinWidthPoints
	}
	if perTrade.MaxTradeRiskFraction <= 0 || perTrade.MaxTradeRiskFraction > 1 {
		perTrade = NewPerTradeRisk(0)
	}
	return &Sizer{params: params, perTrade: perTrade, budget: b}
}

// SetObserver attaches an optional observer for derived sizings.
func (s *Sizer) SetObserver(obs Observer) { s.obs = obs }

// Params returns the effective sizing constants.
func (s *Sizer) Params() Params { return s.params }

// PerTrade returns the configured per-trade risk fraction holder.
func (s *Sizer) PerTrade() PerTradeRisk { return s.perTrade }

// pass is one fraction/buffer/division derivation at a fixed spec.
type pass struct {
	maxLoss         float64
	fraction        float64
	dynamicFraction bool
	allowance       float64
	buffered        float64
	derived         int
	capped          int
}

func (s *Sizer) derive(date time.Time, spec Spec) pass {
	p := pass{maxLoss: spec.MaxLossPerContract()}
	remaining := s.budget.Remaining(date)

	p.fraction = s.perTrade.MaxTradeRiskFraction
	if s.budget.DailyLimit(date) <= s.params.LowCapThreshold {
		p.fraction = s.params.LowCapFraction
		p.dynamicFraction = true
	}

	p.allowance = remaining * p.fraction
	p.buffered = p.allowance * (1 - s.params.SafetyBuffer)
	if p.maxLoss > 0 {
		p.derived = int(math.Floor(p.buffered / p.maxLoss))
	}
	p.capped = p.derived
	if p.capped > s.params.HardCapContracts {
		p.capped = s.params.HardCapContracts
	}
	return p
}

// MaxContracts computes the largest whole contract count for spec
// that today's remaining budget supports, applying, in order: the
// low-cap dynamic fraction, the safety buffer, floor division, the
// hard cap, the single-contract probe, and one scale-to-fit retry at
// the minimum width. Every path stays inside the absolute remaining
// budget and the hard cap.
func (s *Sizer) MaxContracts(date time.Time, spec Spec) Result {
	res := Result{Derivation: DerivationStandard}

	if err := spec.Validate(); err != nil {
		res.Details = fmt.Sprintf("rejected: %v", err)
		return res
	}
	if ml := spec.MaxLossPerContract(); ml <= 0 {
		res.Details = fmt.Sprintf("rejected: non-positive max loss %.2f", ml)
		return res
	}

	remaining := s.budget.Remaining(date)
	first := s.derive(date, spec)

	res.Valid = true
	res.Contracts = first.capped
	res.DerivedContracts = first.derived
	res.DynamicFraction = first.dynamicFraction
	res.AppliedFraction = first.fraction
	res.SafetyBufferApplied = true
	res.MaxLossPerContract = first.maxLoss
	res.Allowance = first.allowance
	res.Remaining = remaining

	var trace strings.Builder
	fmt.Fprintf(&trace, "remaining=%.2f fraction=%.2f allowance=%.2f buffered=%.2f maxLoss=%.2f derived=%d",
		remaining, first.fraction, first.allowance, first.buffered, first.maxLoss, first.derived)
	if first.dynamicFraction {
		trace.WriteString(" dynamic-fraction")
	}
	if first.derived > s.params.HardCapContracts {
		fmt.Fprintf(&trace, " hard-cap=%d", s.params.HardCapContracts)
	}

	// Probe: one contract of participation when plain division hit
	// zero, the day has no open positions, and the unbuffered
	// remaining budget tolerates a full single-contract loss. The
	// fraction and buffer are bypassed here; the absolute ceiling is
	// not.
	if res.Contracts == 0 && s.budget.OpenPositions(date) == 0 && first.maxLoss <= remaining {
		res.Contracts = 1
		res.Derivation = DerivationProbe
		trace.WriteString(" probe=1")
	}

	// Scale-to-fit: a single retry at the minimum width. Skipped
	// entirely when the spec is already at (or below) that width.
	if res.Contracts == 0 && spec.EffectiveWidth() > s.params.MinWidthPoints {
		narrow := spec.Narrowed(s.params.MinWidthPoints)
		if narrow.Validate() == nil {
			retry := s.derive(date, narrow)
			if retry.capped >= 1 {
				res.Contracts = retry.capped
				res.DerivedContracts = retry.derived
				res.Derivation = DerivationScaleToFit
				res.DynamicFraction = retry.dynamicFraction
				res.AppliedFraction = retry.fraction
				res.MaxLossPerContract = retry.maxLoss
				res.Allowance = retry.allowance
				fmt.Fprintf(&trace, " [SCALED] width=%.2f maxLoss=%.2f contracts=%d",
					s.params.MinWidthPoints, retry.maxLoss, retry.capped)
			}
		}
	}

	res.Details = trace.String()
	if s.obs != nil {
		s.obs.SizingDerived(string(res.Derivation), res.DynamicFraction)
	}
	return res
}

var (
	ErrNoContracts        = errors.New("no contracts proposed")
	ErrHardCapExceeded    = errors.New("hard contract cap exceeded")
	ErrInsufficientBudget = errors.New("insufficient remaining budget")
)

// ValidateContracts re-checks an externally chosen contract count
// against the same hard-cap and absolute-budget math used for
// derivation. It does not re-derive the fraction path; a count the
// absolute budget tolerates is acceptable even if the fraction math
// would have derived fewer.
func (s *Sizer) ValidateContracts(date time.Time, spec Spec, contracts int) error {
	if contracts <= 0 {
		return ErrNoContracts
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if contracts > s.params.HardCapContracts {
		return fmt.Errorf("%w: %d > %d", ErrHardCapExceeded, contracts, s.params.HardCapContracts)
	}
	worst := float64(contracts) * spec.MaxLossPerContract()
	remaining := s.budget.Remaining(date)
	if worst > remaining {
		return fmt.Errorf("%w: worst case %.2f > remaining %.2f", ErrInsufficientBudget, worst, remaining)
	}
	return nil
}
