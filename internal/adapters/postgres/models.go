package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// salaModel keeps the lookup columns next to the full agreement document.
type salaModel struct {
	SalaID    string     `gorm:"column:sala_id;primaryKey"`
	FunderID  string     `gorm:"column:funder_id"`
	PartnerID string     `gorm:"column:partner_id"`
	State     string     `gorm:"column:state"`
	HoldUntil *time.Time `gorm:"column:hold_until"`
	Document  string     `gorm:"column:document;type:jsonb"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (salaModel) TableName() string { return "salas" }

type walletModel struct {
	UserID    string          `gorm:"column:user_id;primaryKey"`
	Available decimal.Decimal `gorm:"column:available;type:numeric(18,2)"`
	InEscrow  decimal.Decimal `gorm:"column:in_escrow;type:numeric(18,2)"`
	InHold    decimal.Decimal `gorm:"column:in_hold;type:numeric(18,2)"`
	InReview  decimal.Decimal `gorm:"column:in_review;type:numeric(18,2)"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (walletModel) TableName() string { return "wallets" }

type fundLockModel struct {
	SalaID         string          `gorm:"column:sala_id;primaryKey"`
	FunderID       string          `gorm:"column:funder_id"`
	PartnerID      string          `gorm:"column:partner_id"`
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(18,2)"`
	PartnerPending decimal.Decimal `gorm:"column:partner_pending;type:numeric(18,2)"`
	PartnerBucket  string          `gorm:"column:partner_bucket"`
	Status         string          `gorm:"column:status"`
	LockedAt       time.Time       `gorm:"column:locked_at"`
	ClosedAt       *time.Time      `gorm:"column:closed_at"`
}

func (fundLockModel) TableName() string { return "fund_locks" }

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventClass   string     `gorm:"column:event_class"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    string     `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "sala_outbox" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "sala_idempotency" }
