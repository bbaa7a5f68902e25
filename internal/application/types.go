package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ledger"
	"github.com/viralforge/sala-escrow/internal/ports"
	"github.com/viralforge/sala-escrow/pkg/scoring"
)

type Config struct {
	ServiceName          string
	IdempotencyTTL       time.Duration
	HoldPeriod           time.Duration
	MaxRejectedAttempts  int
	OutboxFlushBatchSize int
	HoldSweepBatchSize   int
	PlatformAccountID    string
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

func (a Actor) isStaff() bool { return domain.IsStaffRole(a.Role) }

type CreateAgreementInput struct {
	FunderID      string          `json:"funder_id"`
	PartnerID     string          `json:"partner_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CommissionPct int             `json:"partner_commission_pct"`
}

type EvidenceFileInput struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
	// Category accepts a scoring category or a mime type. The file name is
	// used when it is empty.
	Category string `json:"category"`
}

type SubmitEvidenceInput struct {
	AgreementID string              `json:"sala_id"`
	Notes       string              `json:"notes"`
	Files       []EvidenceFileInput `json:"files"`
}

// EvidenceResult pairs the updated agreement with the scorer output.
type EvidenceResult struct {
	Agreement domain.Agreement `json:"sala"`
	Result    scoring.Result   `json:"ia_result"`
}

type OpenDisputeInput struct {
	AgreementID string `json:"sala_id"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type ResolveDisputeInput struct {
	AgreementID string           `json:"sala_id"`
	Resolution  string           `json:"resolution"`
	PartialPct  *decimal.Decimal `json:"partial_pct,omitempty"`
}

type WalletMovementInput struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type Service struct {
	cfg          Config
	uow          ports.UnitOfWork
	reads        ports.Repositories
	locker       ports.AgreementLocker
	holds        ports.HoldScheduler
	idempotency  ports.IdempotencyRepository
	ledger       *ledger.EscrowLedger
	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher
	nowFn        func() time.Time
}

type Dependencies struct {
	Config Config
	// UnitOfWork runs every mutation. Reads go to Repositories.
	UnitOfWork   ports.UnitOfWork
	Repositories ports.Repositories
	Locker       ports.AgreementLocker
	Holds        ports.HoldScheduler
	Idempotency  ports.IdempotencyRepository
	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	DLQ          ports.DLQPublisher
	Clock        func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sala-escrow-service"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.HoldPeriod <= 0 {
		cfg.HoldPeriod = 14 * 24 * time.Hour
	}
	if cfg.MaxRejectedAttempts <= 0 {
		cfg.MaxRejectedAttempts = 3
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	if cfg.HoldSweepBatchSize <= 0 {
		cfg.HoldSweepBatchSize = 200
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	l := ledger.New(cfg.PlatformAccountID)
	cfg.PlatformAccountID = l.PlatformAccountID()
	return &Service{
		cfg:          cfg,
		uow:          deps.UnitOfWork,
		reads:        deps.Repositories,
		locker:       deps.Locker,
		holds:        deps.Holds,
		idempotency:  deps.Idempotency,
		ledger:       l,
		domainEvents: deps.DomainEvents,
		analytics:    deps.Analytics,
		dlq:          deps.DLQ,
		nowFn:        nowFn,
	}
}

func (s *Service) Config() Config { return s.cfg }
