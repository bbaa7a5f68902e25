package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/viralforge/sala-escrow/pkg/feesplit"
	"github.com/viralforge/sala-escrow/pkg/scoring"
)

const (
	StateCreated           = "created"
	StateActive            = "active"
	StateEvidenceSubmitted = "evidence_submitted"
	StateScored            = "scored"
	StateApproved          = "approved"
	StateManualReview      = "manual_review"
	StateRejected          = "rejected"
	StateHold              = "hold"
	StateDisputed          = "disputed"
	StateCompleted         = "completed"
	StateRefunded          = "refunded"
)

const (
	ActorSystem    = "system"
	ActorAuditor   = "ia_auditor"
	RoleUser       = "user"
	RoleSupport    = "support"
	RoleAdmin      = "admin"
	RoleSystemName = "system"
)

var allowedTransitions = map[string]map[string]bool{
	StateCreated:           {StateActive: true},
	StateActive:            {StateEvidenceSubmitted: true, StateScored: true, StateDisputed: true},
	StateEvidenceSubmitted: {StateScored: true, StateDisputed: true},
	StateScored:            {StateApproved: true, StateManualReview: true, StateRejected: true, StateDisputed: true},
	StateRejected:          {StateActive: true, StateManualReview: true},
	StateManualReview:      {StateEvidenceSubmitted: true, StateScored: true, StateApproved: true, StateDisputed: true},
	StateApproved:          {StateHold: true, StateDisputed: true},
	StateHold:              {StateCompleted: true, StateDisputed: true},
	StateDisputed:          {StateCompleted: true, StateRefunded: true},
}

// ValidateStateTransition reports whether the lifecycle may move from one
// state to another.
func ValidateStateTransition(from, to string) error {
	if next, ok := allowedTransitions[from]; ok && next[to] {
		return nil
	}
	return ErrInvalidTransition
}

func IsTerminalState(state string) bool {
	return state == StateCompleted || state == StateRefunded
}

// IsStaffRole reports roles allowed to act on any agreement.
func IsStaffRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleSupport, RoleAdmin, RoleSystemName:
		return true
	default:
		return false
	}
}

// Agreement is one Sala Digital: a funder paying a partner through escrow.
type Agreement struct {
	AgreementID   string          `json:"sala_id"`
	FunderID      string          `json:"funder_id"`
	PartnerID     string          `json:"partner_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CommissionPct int             `json:"partner_commission_pct"`
	PlatformFee   decimal.Decimal `json:"platform_fee_amount"`
	PartnerGain   decimal.Decimal `json:"partner_gain_amount"`
	NetToFunder   decimal.Decimal `json:"net_to_funder_amount"`

	State              string       `json:"state"`
	Evidence           *Evidence    `json:"evidence,omitempty"`
	EvidenceHistory    []Evidence   `json:"evidence_history,omitempty"`
	Score              *ScoreRecord `json:"score,omitempty"`
	SubmissionCount    int          `json:"submission_count"`
	RejectedAttempts   int          `json:"rejected_attempts"`
	FundsReleased      bool         `json:"funds_released"`
	InHold             bool         `json:"in_hold"`
	HoldUntil          *time.Time   `json:"hold_until,omitempty"`
	HasDispute         bool         `json:"has_dispute"`
	Dispute            *Dispute     `json:"dispute,omitempty"`
	StateBeforeDispute string       `json:"state_before_dispute,omitempty"`
	Timeline           Timeline     `json:"timeline"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Split returns the money breakdown frozen at creation.
func (a Agreement) Split() feesplit.Split {
	return feesplit.Split{
		Total:       a.TotalAmount,
		PlatformFee: a.PlatformFee,
		PartnerGain: a.PartnerGain,
		NetToFunder: a.NetToFunder,
	}
}

func (a Agreement) IsParticipant(userID string) bool {
	return userID != "" && (userID == a.FunderID || userID == a.PartnerID)
}

// Transition moves the agreement to a new lifecycle state.
func (a *Agreement) Transition(to string, at time.Time) error {
	if err := ValidateStateTransition(a.State, to); err != nil {
		return err
	}
	a.State = to
	a.UpdatedAt = at
	return nil
}

// Clone returns a deep copy safe to mutate independently.
func (a Agreement) Clone() Agreement {
	out := a
	if a.Evidence != nil {
		ev := *a.Evidence
		ev.Files = append([]EvidenceFile(nil), a.Evidence.Files...)
		out.Evidence = &ev
	}
	if a.EvidenceHistory != nil {
		out.EvidenceHistory = make([]Evidence, len(a.EvidenceHistory))
		for i, ev := range a.EvidenceHistory {
			ev.Files = append([]EvidenceFile(nil), ev.Files...)
			out.EvidenceHistory[i] = ev
		}
	}
	if a.Score != nil {
		sc := *a.Score
		out.Score = &sc
	}
	if a.HoldUntil != nil {
		t := *a.HoldUntil
		out.HoldUntil = &t
	}
	if a.Dispute != nil {
		d := a.Dispute.clone()
		out.Dispute = &d
	}
	out.Timeline = a.Timeline.Events()
	return out
}

// AddEvidence makes ev the latest submission and numbers it. The submission
// it replaces moves to EvidenceHistory unchanged.
func (a *Agreement) AddEvidence(ev Evidence) Evidence {
	if a.Evidence != nil {
		a.EvidenceHistory = append(a.EvidenceHistory, *a.Evidence)
	}
	a.SubmissionCount++
	ev.Submission = a.SubmissionCount
	a.Evidence = &ev
	return ev
}

// Evidence is one immutable submission by the partner.
type Evidence struct {
	Submission  int            `json:"submission"`
	Files       []EvidenceFile `json:"files"`
	Notes       string         `json:"notes"`
	SubmittedAt time.Time      `json:"submitted_at"`
	SubmittedBy string         `json:"submitted_by"`
}

type EvidenceFile struct {
	Name      string           `json:"name"`
	URL       string           `json:"url"`
	SizeBytes int64            `json:"size_bytes"`
	Category  scoring.Category `json:"category"`
}

// ScoringFiles projects the evidence onto the scorer input.
func (e Evidence) ScoringFiles() []scoring.File {
	out := make([]scoring.File, 0, len(e.Files))
	for _, f := range e.Files {
		out = append(out, scoring.File{Name: f.Name, Category: f.Category})
	}
	return out
}

type ScoreRecord struct {
	Submission int               `json:"submission"`
	Score      float64           `json:"score"`
	Breakdown  scoring.Breakdown `json:"breakdown"`
	Verdict    scoring.Verdict   `json:"verdict"`
	ScoredAt   time.Time         `json:"scored_at"`
}
