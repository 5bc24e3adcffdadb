// Package sizing converts a daily risk budget into a whole-number
// option contract count for a proposed strategy.
package sizing

import (
	"errors"
	"fmt"
	"math"
)

// ContractMultiplier converts strike-point distances to currency per
// contract for standard equity/index options.
const ContractMultiplier = 100.0

// Kind identifies the option structure being sized.
type Kind string

const (
	IronCondor          Kind = "iron_condor"
	BrokenWingButterfly Kind = "broken_wing_butterfly"
)

var (
	ErrInvalidWidth  = errors.New("non-positive width")
	ErrInvalidCredit = errors.New("negative credit")
	ErrCreditTooWide = errors.New("credit at or above width")
	ErrUnknownKind   = errors.New("unknown strategy kind")
)

// Spec describes the risk-defining shape of a proposed strategy.
// Credit and widths are already-computed inputs; pricing is a
// collaborator concern.
type Spec struct {
	Kind      Kind    `json:"kind" yaml:"kind"`
	NetCredit float64 `json:"net_credit" yaml:"net_credit"`

	// Symmetric width, used when no side-specific widths are set.
	Width float64 `json:"width" yaml:"width"`

	// Condor side widths (points).
	PutWidth  float64 `json:"put_width,omitempty" yaml:"put_width,omitempty"`
	CallWidth float64 `json:"call_width,omitempty" yaml:"call_width,omitempty"`

	// Broken-wing butterfly widths (points).
	BodyWidth float64 `json:"body_width,omitempty" yaml:"body_width,omitempty"`
	WingWidth float64 `json:"wing_width,omitempty" yaml:"wing_width,omitempty"`
}

// EffectiveWidth is the strike distance that bounds the worst-case
// loss: the wider side for condors, the wider wing for broken-wing
// butterflies, and the symmetric width otherwise.
func (s Spec) EffectiveWidth() float64 {
	switch s.Kind {
	case BrokenWingButterfly:
		if w := math.Max(s.BodyWidth, s.WingWidth); w > 0 {
			return w
		}
	default:
		if w := math.Max(s.PutWidth, s.CallWidth); w > 0 {
			return w
		}
	}
	return s.Width
}

// MaxLossPerContract returns the worst-case loss of one contract in
// currency units.
func (s Spec) MaxLossPerContract() float64 {
	return (s.EffectiveWidth() - s.NetCredit) * ContractMultiplier
}

// Validate rejects structurally broken specs. Business rejections
// (budget too small, cap reached) are not errors; this only covers
// inputs that can never produce a meaningful size.
func (s Spec) Validate() error {
	switch s.Kind {
	case IronCondor, BrokenWingButterfly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	w := s.EffectiveWidth()
	if w <= 0 {
		return fmt.Errorf("%w: %.4f", ErrInvalidWidth, w)
	}
	if s.NetCredit < 0 {
		return fmt.Errorf("%w: %.4f", ErrInvalidCredit, s.NetCredit)
	}
	if s.NetCredit >= w {
		return fmt.Errorf("%w: credit %.4f width %.4f", ErrCreditTooWide, s.NetCredit, w)
	}
	return nil
}

// Narrowed returns a copy of the spec with every width collapsed to
// w, used by the scale-to-fit retry.
func (s Spec) Narrowed(w float64) Spec {
	n := s
	n.Width = w
	if n.PutWidth > 0 {
		n.PutWidth = w
	}
	if n.CallWidth > 0 {
		n.CallWidth = w
	}
	if n.BodyWidth > 0 {
		n.BodyWidth = w
	}
	if n.WingWidth > 0 {
		n.WingWidth = w
	}
	return n
}
