package contracts

import "github.com/shopspring/decimal"

type CreateSalaRequest struct {
	FunderID             string          `json:"funder_id,omitempty"`
	PartnerID            string          `json:"partner_id"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PartnerCommissionPct int             `json:"partner_commission_pct"`
}

type EvidenceFileRequest struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Category  string `json:"category,omitempty"`
}

type SubmitEvidenceRequest struct {
	Notes string                `json:"notes"`
	Files []EvidenceFileRequest `json:"files"`
}

type OpenDisputeRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type ResolveDisputeRequest struct {
	Resolution string           `json:"resolution"`
	PartialPct *decimal.Decimal `json:"partial_pct,omitempty"`
}

type WalletMovementRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type WalletBalanceResponse struct {
	UserID    string `json:"user_id"`
	Available string `json:"available"`
	InEscrow  string `json:"in_escrow"`
	InHold    string `json:"in_hold"`
	InReview  string `json:"in_review"`
	UpdatedAt string `json:"updated_at,omitempty"`
}
