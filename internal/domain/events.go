package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventSalaCreated          = "sala.created"
	EventSalaEvidenceScored   = "sala.evidence_scored"
	EventSalaApproved         = "sala.approved"
	EventSalaCompleted        = "sala.completed"
	EventSalaRefunded         = "sala.refunded"
	EventSalaDisputeOpened    = "sala.dispute_opened"
	EventSalaDisputeResolved  = "sala.dispute_resolved"
	EventWalletDepositSettled = "wallet.deposit_settled"
	EventWalletWithdrawn      = "wallet.withdrawn"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	return CanonicalEventClass(eventType) != ""
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventSalaCreated, EventSalaApproved, EventSalaCompleted, EventSalaRefunded,
		EventSalaDisputeOpened, EventSalaDisputeResolved, EventWalletDepositSettled, EventWalletWithdrawn:
		return CanonicalEventClassDomain
	case EventSalaEvidenceScored:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventWalletDepositSettled, EventWalletWithdrawn:
		return "data.user_id"
	case "":
		return ""
	default:
		if IsCanonicalEmittedEvent(eventType) {
			return "data.sala_id"
		}
		return ""
	}
}
