package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DisputeStateOpen     = "open"
	DisputeStateResolved = "resolved"
)

const (
	ResolutionFullRelease    = "full_release"
	ResolutionPartialRelease = "partial_release"
	ResolutionFullRefund     = "full_refund"
)

// Dispute freezes an agreement until someone settles it. At most one per
// agreement; a resolved dispute is never reopened.
type Dispute struct {
	DisputeID   string           `json:"dispute_id"`
	OpenedBy    string           `json:"opened_by"`
	Reason      string           `json:"reason"`
	Description string           `json:"description"`
	State       string           `json:"state"`
	Resolution  string           `json:"resolution,omitempty"`
	PartialPct  *decimal.Decimal `json:"partial_pct,omitempty"`
	ResolvedBy  string           `json:"resolved_by,omitempty"`
	OpenedAt    time.Time        `json:"opened_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
}

func (d Dispute) clone() Dispute {
	out := d
	if d.PartialPct != nil {
		p := *d.PartialPct
		out.PartialPct = &p
	}
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}

func NormalizeResolution(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ResolutionFullRelease:
		return ResolutionFullRelease
	case ResolutionPartialRelease:
		return ResolutionPartialRelease
	case ResolutionFullRefund:
		return ResolutionFullRefund
	default:
		return ""
	}
}
