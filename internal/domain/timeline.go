package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TimelineCreation          = "creation"
	TimelineEvidenceSubmitted = "evidence_submitted"
	TimelineScored            = "ia_scored"
	TimelineApproved          = "approved"
	TimelineManualApproval    = "manual_approval"
	TimelineManualReview      = "manual_review"
	TimelineRejected          = "rejected"
	TimelineEscalated         = "escalated"
	TimelineHoldStarted       = "hold_started"
	TimelineCompleted         = "completed"
	TimelineDisputeOpened     = "dispute_opened"
	TimelineDisputeResolved   = "dispute_resolved"
)

// TimelineEvent is one audit entry. Events are never edited once appended.
type TimelineEvent struct {
	EventID     string    `json:"event_id"`
	AgreementID string    `json:"sala_id"`
	Seq         int       `json:"seq"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Actor       string    `json:"actor"`
	Score       *float64  `json:"score,omitempty"`
}

// Timeline is the append-only audit log of one agreement.
type Timeline []TimelineEvent

// Append adds an event with the next sequence number. Timestamps are kept
// strictly increasing even if the clock stalls or steps back.
func (t *Timeline) Append(agreementID, eventType, description, actor string, score *float64, at time.Time) TimelineEvent {
	at = at.UTC()
	seq := 1
	if n := len(*t); n > 0 {
		last := (*t)[n-1]
		seq = last.Seq + 1
		if !at.After(last.Timestamp) {
			at = last.Timestamp.Add(time.Microsecond)
		}
	}
	if actor == "" {
		actor = ActorSystem
	}
	ev := TimelineEvent{
		EventID:     uuid.NewString(),
		AgreementID: agreementID,
		Seq:         seq,
		Type:        eventType,
		Description: description,
		Timestamp:   at,
		Actor:       actor,
	}
	if score != nil {
		v := *score
		ev.Score = &v
	}
	*t = append(*t, ev)
	return ev
}

// Events returns a copy callers may keep.
func (t Timeline) Events() Timeline {
	out := make(Timeline, len(t))
	copy(out, t)
	return out
}

// Record appends a timeline event to the agreement and bumps UpdatedAt.
func (a *Agreement) Record(eventType, description, actor string, score *float64, at time.Time) TimelineEvent {
	ev := a.Timeline.Append(a.AgreementID, eventType, description, actor, score, at)
	a.UpdatedAt = ev.Timestamp
	return ev
}
