// Package audit keeps the append-only decision trail for sizing and
// execution gating. Records are value objects: created once per
// validation call, never mutated or deleted.
package audit

import "time"

// Decision is the gate outcome recorded for a candidate.
type Decision string

const (
	Approved Decision = "APPROVED"
	Rejected Decision = "REJECTED"
)

// Record is one audit entry. The JSON field names (t, sym, decision,
// DailyCap, RemainingBudget) are a stable contract for external
// compliance tooling; do not rename them.
type Record struct {
	ID              string    `json:"id"`
	T               time.Time `json:"t"`
	Symbol          string    `json:"sym"`
	Width           float64   `json:"width"`
	Credit          float64   `json:"credit"`
	Contracts       int       `json:"contracts"`
	DailyCap        float64   `json:"DailyCap"`
	RemainingBudget float64   `json:"RemainingBudget"`
	Decision        Decision  `json:"decision"`
	Reason          string    `json:"reason,omitempty"`
}
