package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type SalaCreatedPayload struct {
	SalaID        string `json:"sala_id"`
	FunderID      string `json:"funder_id"`
	PartnerID     string `json:"partner_id"`
	TotalAmount   string `json:"total_amount"`
	CommissionPct int    `json:"partner_commission_pct"`
	CreatedAt     string `json:"created_at"`
}

type SalaEvidenceScoredPayload struct {
	SalaID   string  `json:"sala_id"`
	Score    float64 `json:"score"`
	Verdict  string  `json:"verdict"`
	State    string  `json:"state"`
	ScoredAt string  `json:"scored_at"`
}

type SalaApprovedPayload struct {
	SalaID      string `json:"sala_id"`
	ApprovedBy  string `json:"approved_by"`
	PartnerGain string `json:"partner_gain_amount"`
	HoldUntil   string `json:"hold_until"`
}

type SalaSettledPayload struct {
	SalaID      string `json:"sala_id"`
	State       string `json:"state"`
	PlatformFee string `json:"platform_fee_amount"`
	PartnerGain string `json:"partner_gain_amount"`
	NetToFunder string `json:"net_to_funder_amount"`
	SettledAt   string `json:"settled_at"`
}

type SalaDisputePayload struct {
	SalaID     string `json:"sala_id"`
	DisputeID  string `json:"dispute_id"`
	State      string `json:"state"`
	Resolution string `json:"resolution,omitempty"`
	ActorID    string `json:"actor_id"`
	OccurredAt string `json:"occurred_at"`
}

type WalletMovementPayload struct {
	UserID     string `json:"user_id"`
	Amount     string `json:"amount"`
	Available  string `json:"available"`
	OccurredAt string `json:"occurred_at"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	DLQTopic      string        `json:"dlq_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
