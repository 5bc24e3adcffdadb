package gate

import (
	"time"

	"github.com/rustyeddy/riskgate/budget"
)

// CapValidator is the defense-in-depth budget check: it recomputes
// the worst-case loss of a candidate from scratch and fits it against
// the absolute remaining budget and an optional per-trade ceiling. It
// is deliberately independent of the sizer's arithmetic so a stale or
// externally tampered contract count still gets rejected.
type CapValidator struct {
	budget *budget.Tracker

	// PerTradeMaxLoss is an absolute per-trade worst-case ceiling;
	// zero disables it.
	PerTradeMaxLoss float64
}

// NewCapValidator builds a validator over the given tracker.
func NewCapValidator(b *budget.Tracker, perTradeMaxLoss float64) *CapValidator {
	return &CapValidator{budget: b, PerTradeMaxLoss: perTradeMaxLoss}
}

// Validate reports whether the candidate's worst-case loss fits the
// date's remaining budget, and the loss it computed. Structurally
// invalid candidates never fit.
func (v *CapValidator) Validate(c Candidate, date time.Time) (fits bool, maxLoss float64) {
	if c.Contracts <= 0 || c.Spec.Validate() != nil {
		return false, 0
	}
	maxLoss = float64(c.Contracts) * c.Spec.MaxLossPerContract()
	if maxLoss <= 0 {
		return false, maxLoss
	}
	if v.PerTradeMaxLoss > 0 && maxLoss > v.PerTradeMaxLoss {
		return false, maxLoss
	}
	return maxLoss <= v.budget.Remaining(date), maxLoss
}
