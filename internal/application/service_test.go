package application_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viralforge/sala-escrow/internal/adapters/cache"
	"github.com/viralforge/sala-escrow/internal/adapters/memory"
	"github.com/viralforge/sala-escrow/internal/application"
	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/pkg/scoring"
)

const (
	funder  = "marca-1"
	partner = "socio-1"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeHolds struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	cancelled []string
}

func (f *fakeHolds) Schedule(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[id] = at
	return nil
}

func (f *fakeHolds) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, id)
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeHolds) armed(id string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.scheduled[id]
	return at, ok
}

type fixture struct {
	svc      *application.Service
	store    *memory.Store
	clock    *testClock
	holds    *fakeHolds
	deposits decimal.Decimal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
	holds := &fakeHolds{scheduled: map[string]time.Time{}}
	svc := application.NewService(application.Dependencies{
		Config:       application.Config{MaxRejectedAttempts: 3},
		UnitOfWork:   store,
		Repositories: store.Repositories(),
		Locker:       cache.NewLocalLocker(time.Second),
		Holds:        holds,
		Idempotency:  store.Idempotency,
		Clock:        clock.Now,
	})
	return &fixture{svc: svc, store: store, clock: clock, holds: holds, deposits: decimal.Zero}
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func user(id string) application.Actor {
	return application.Actor{SubjectID: id, Role: domain.RoleUser, RequestID: uuid.NewString()}
}

func staff() application.Actor {
	return application.Actor{SubjectID: "ops-1", Role: domain.RoleSupport, RequestID: uuid.NewString()}
}

func withKey(a application.Actor) application.Actor {
	a.IdempotencyKey = uuid.NewString()
	return a
}

func (f *fixture) deposit(t *testing.T, userID, amount string) {
	t.Helper()
	actor := withKey(application.Actor{SubjectID: "card-rail", Role: domain.RoleSystemName})
	_, err := f.svc.Deposit(context.Background(), actor, application.WalletMovementInput{UserID: userID, Amount: d(amount)})
	require.NoError(t, err)
	f.deposits = f.deposits.Add(d(amount))
}

func (f *fixture) create(t *testing.T, total string, pct int) domain.Agreement {
	t.Helper()
	a, err := f.svc.CreateAgreement(context.Background(), withKey(user(funder)), application.CreateAgreementInput{
		PartnerID:     partner,
		Title:         "Campaña de lanzamiento",
		Description:   "Publicar y reportar ventas",
		TotalAmount:   d(total),
		CommissionPct: pct,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) wallet(t *testing.T, userID string) domain.Wallet {
	t.Helper()
	w, err := f.store.Repositories().Wallets.Get(context.Background(), userID)
	require.NoError(t, err)
	return w
}

func (f *fixture) agreement(t *testing.T, id string) domain.Agreement {
	t.Helper()
	a, err := f.svc.GetAgreement(context.Background(), staff(), id)
	require.NoError(t, err)
	return a
}

func (f *fixture) assertConserved(t *testing.T) {
	t.Helper()
	assert.True(t, f.store.TotalHoldings().Equal(f.deposits), "holdings %s != deposits %s", f.store.TotalHoldings(), f.deposits)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palabra ", n))
}

func strongEvidence(id string) application.SubmitEvidenceInput {
	return application.SubmitEvidenceInput{
		AgreementID: id,
		Notes:       words(88) + " https://tienda.example.com/reporte 42",
		Files: []application.EvidenceFileInput{
			{Name: "captura_ventas.png", URL: "s3://ev/1", Category: "image/png"},
			{Name: "dashboard-semana.jpg", URL: "s3://ev/2", Category: "image/jpeg"},
			{Name: "foto_local.jpg", URL: "s3://ev/3"},
			{Name: "video_campana.mp4", URL: "s3://ev/4", Category: "video"},
			{Name: "informe.pdf", URL: "s3://ev/5", Category: "application/pdf"},
		},
	}
}

func reviewEvidence(id string) application.SubmitEvidenceInput {
	return application.SubmitEvidenceInput{
		AgreementID: id,
		Notes:       words(78) + " https://tienda.example.com/reporte 42",
		Files: []application.EvidenceFileInput{
			{Name: "captura_1.png"}, {Name: "captura_2.png"}, {Name: "captura_3.png"},
			{Name: "foto_a.jpg"}, {Name: "foto_b.jpg"},
		},
	}
}

func weakEvidence(id string) application.SubmitEvidenceInput {
	return application.SubmitEvidenceInput{
		AgreementID: id,
		Notes:       words(10),
		Files:       []application.EvidenceFileInput{{Name: "contrato.pdf"}},
	}
}

func timelineTypes(a domain.Agreement) []string {
	out := make([]string, 0, len(a.Timeline))
	for _, ev := range a.Timeline {
		out = append(out, ev.Type)
	}
	return out
}

func TestCreateAgreementLocksSplitFunds(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "3000")

	a := f.create(t, "2500", 25)

	assert.Equal(t, domain.StateActive, a.State)
	assert.Equal(t, "375.00", a.PlatformFee.StringFixed(2))
	assert.Equal(t, "625.00", a.PartnerGain.StringFixed(2))
	assert.Equal(t, "1500.00", a.NetToFunder.StringFixed(2))
	require.Len(t, a.Timeline, 1)
	assert.Equal(t, domain.TimelineCreation, a.Timeline[0].Type)
	assert.Equal(t, funder, a.Timeline[0].Actor)

	w := f.wallet(t, funder)
	assert.True(t, w.Available.Equal(d("500")))
	assert.True(t, w.InEscrow.Equal(d("2500")))
	f.assertConserved(t)
}

func TestCreateAgreementRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "100")
	ctx := context.Background()

	cases := []struct {
		name  string
		actor application.Actor
		input application.CreateAgreementInput
		err   error
	}{
		{"anonymous", application.Actor{IdempotencyKey: "k"}, application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("10")}, domain.ErrUnauthorized},
		{"missing key", user(funder), application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("10")}, domain.ErrIdempotencyRequired},
		{"commission above cap", withKey(user(funder)), application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("10"), CommissionPct: 41}, domain.ErrInvalidCommission},
		{"sub-cent amount", withKey(user(funder)), application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("10.001")}, domain.ErrInvalidAmount},
		{"zero amount", withKey(user(funder)), application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("0")}, domain.ErrInvalidAmount},
		{"self dealing", withKey(user(funder)), application.CreateAgreementInput{PartnerID: funder, Title: "t", TotalAmount: d("10")}, domain.ErrInvalidInput},
		{"funding for someone else", withKey(user(funder)), application.CreateAgreementInput{FunderID: "other", PartnerID: partner, Title: "t", TotalAmount: d("10")}, domain.ErrForbidden},
		{"short of funds", withKey(user(funder)), application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("100.01")}, domain.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAgreement(ctx, tc.actor, tc.input)
			require.ErrorIs(t, err, tc.err)
		})
	}
	assert.True(t, f.wallet(t, funder).Available.Equal(d("100")))
	f.assertConserved(t)
}

func TestCreateAgreementReplaysIdempotentRequest(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "1000")
	actor := withKey(user(funder))
	input := application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("400"), CommissionPct: 10}

	first, err := f.svc.CreateAgreement(context.Background(), actor, input)
	require.NoError(t, err)
	second, err := f.svc.CreateAgreement(context.Background(), actor, input)
	require.NoError(t, err)
	assert.Equal(t, first.AgreementID, second.AgreementID)
	assert.True(t, f.wallet(t, funder).InEscrow.Equal(d("400")), "replay must not lock twice")

	input.TotalAmount = d("401")
	_, err = f.svc.CreateAgreement(context.Background(), actor, input)
	require.ErrorIs(t, err, domain.ErrIdempotencyConflict)
}

func TestIdempotencyKeyDoesNotReplayForAnotherCaller(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "1000")
	a := f.create(t, "1000", 20)
	ctx := context.Background()
	_, err := f.svc.SubmitEvidence(ctx, user(partner), reviewEvidence(a.AgreementID))
	require.NoError(t, err)

	owner := user(funder)
	owner.IdempotencyKey = "approve-key"
	approved, err := f.svc.ApproveManually(ctx, owner, a.AgreementID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateHold, approved.State)

	replay, err := f.svc.ApproveManually(ctx, owner, a.AgreementID)
	require.NoError(t, err)
	assert.Equal(t, approved.State, replay.State)

	stranger := user("stranger-9")
	stranger.IdempotencyKey = "approve-key"
	_, err = f.svc.ApproveManually(ctx, stranger, a.AgreementID)
	require.ErrorIs(t, err, domain.ErrIdempotencyConflict)

	elevated := owner
	elevated.Role = domain.RoleSupport
	_, err = f.svc.ApproveManually(ctx, elevated, a.AgreementID)
	require.ErrorIs(t, err, domain.ErrIdempotencyConflict)

	other := staff()
	other.IdempotencyKey = "deposit-key"
	_, err = f.svc.Deposit(ctx, other, application.WalletMovementInput{UserID: funder, Amount: d("5")})
	require.NoError(t, err)
	f.deposits = f.deposits.Add(d("5"))
	thief := application.Actor{SubjectID: "ops-2", Role: domain.RoleSupport, IdempotencyKey: "deposit-key"}
	_, err = f.svc.Deposit(ctx, thief, application.WalletMovementInput{UserID: funder, Amount: d("5")})
	require.ErrorIs(t, err, domain.ErrIdempotencyConflict)
	f.assertConserved(t)
}

func TestFailedCreateFreesIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	actor := withKey(user(funder))
	input := application.CreateAgreementInput{PartnerID: partner, Title: "t", TotalAmount: d("50")}

	_, err := f.svc.CreateAgreement(context.Background(), actor, input)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	f.deposit(t, funder, "50")
	a, err := f.svc.CreateAgreement(context.Background(), actor, input)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, a.State)
}

func TestApprovedEvidenceStartsHoldAndExpiryCompletes(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "3000")
	a := f.create(t, "2500", 25)
	ctx := context.Background()

	res, err := f.svc.SubmitEvidence(ctx, user(partner), strongEvidence(a.AgreementID))
	require.NoError(t, err)
	assert.Equal(t, 0.933, res.Result.Score)
	assert.Equal(t, scoring.VerdictApproved, res.Result.Verdict)
	assert.Equal(t, domain.StateHold, res.Agreement.State)
	assert.True(t, res.Agreement.InHold)
	require.NotNil(t, res.Agreement.HoldUntil)
	assert.Equal(t, f.clock.Now().Add(14*24*time.Hour), *res.Agreement.HoldUntil)
	assert.Equal(t, []string{
		domain.TimelineCreation, domain.TimelineEvidenceSubmitted, domain.TimelineScored,
		domain.TimelineApproved, domain.TimelineHoldStarted,
	}, timelineTypes(res.Agreement))
	assert.Equal(t, domain.ActorAuditor, res.Agreement.Timeline[2].Actor)

	due, ok := f.holds.armed(a.AgreementID)
	require.True(t, ok)
	assert.Equal(t, *res.Agreement.HoldUntil, due)
	assert.True(t, f.wallet(t, partner).InHold.Equal(d("625")))
	assert.True(t, f.wallet(t, funder).InEscrow.Equal(d("1875")))

	require.ErrorIs(t, f.svc.ExpireHold(ctx, a.AgreementID), domain.ErrInvalidTransition, "not due yet")

	f.clock.Advance(14 * 24 * time.Hour)
	require.NoError(t, f.svc.ExpireHold(ctx, a.AgreementID))

	done := f.agreement(t, a.AgreementID)
	assert.Equal(t, domain.StateCompleted, done.State)
	assert.True(t, done.FundsReleased)
	assert.False(t, done.InHold)
	assert.Equal(t, domain.TimelineCompleted, done.Timeline[len(done.Timeline)-1].Type)
	assert.True(t, f.wallet(t, partner).Available.Equal(d("625")))
	assert.True(t, f.wallet(t, "platform").Available.Equal(d("375")))
	assert.True(t, f.wallet(t, funder).Available.Equal(d("2000")))
	assert.True(t, f.wallet(t, funder).InEscrow.IsZero())
	f.assertConserved(t)

	require.ErrorIs(t, f.svc.ExpireHold(ctx, a.AgreementID), domain.ErrInvalidTransition)
	_, err = f.svc.SubmitEvidence(ctx, user(partner), strongEvidence(a.AgreementID))
	require.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.svc.RescoreEvidence(ctx, user(funder), a.AgreementID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestOnlyPartnerSubmitsEvidence(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "100")
	a := f.create(t, "100", 20)

	_, err := f.svc.SubmitEvidence(context.Background(), user(funder), strongEvidence(a.AgreementID))
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.SubmitEvidence(context.Background(), staff(), strongEvidence(a.AgreementID))
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.SubmitEvidence(context.Background(), user(partner), application.SubmitEvidenceInput{
		AgreementID: a.AgreementID,
		Files:       []application.EvidenceFileInput{{Name: "  "}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.StateActive, f.agreement(t, a.AgreementID).State)
}

func TestRejectedEvidenceEscalatesAfterCap(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "1000")
	a := f.create(t, "1000", 30)
	ctx := context.Background()

	res, err := f.svc.SubmitEvidence(ctx, user(partner), weakEvidence(a.AgreementID))
	require.NoError(t, err)
	assert.Equal(t, 0.129, res.Result.Score)
	assert.Equal(t, scoring.VerdictRejected, res.Result.Verdict)
	assert.Equal(t, domain.StateActive, res.Agreement.State)
	assert.Equal(t, 1, res.Agreement.RejectedAttempts)

	res, err = f.svc.RescoreEvidence(ctx, user(funder), a.AgreementID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, res.Agreement.State)
	assert.Equal(t, 1, res.Agreement.RejectedAttempts, "rescoring never uses up an attempt")

	_, err = f.svc.SubmitEvidence(ctx, user(partner), weakEvidence(a.AgreementID))
	require.NoError(t, err)
	res, err = f.svc.SubmitEvidence(ctx, user(partner), weakEvidence(a.AgreementID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateManualReview, res.Agreement.State)
	assert.Equal(t, 3, res.Agreement.RejectedAttempts)
	assert.Equal(t, 3, res.Agreement.SubmissionCount)
	last := res.Agreement.Timeline[len(res.Agreement.Timeline)-1]
	assert.Equal(t, domain.TimelineEscalated, last.Type)
	assert.True(t, f.wallet(t, partner).InReview.Equal(d("300")))

	res, err = f.svc.SubmitEvidence(ctx, user(partner), weakEvidence(a.AgreementID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateManualReview, res.Agreement.State, "a rejection during review keeps the review open")
	assert.Equal(t, 3, res.Agreement.RejectedAttempts)

	approved, err := f.svc.ApproveManually(ctx, user(funder), a.AgreementID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateHold, approved.State)
	assert.Contains(t, timelineTypes(approved), domain.TimelineManualApproval)
	assert.True(t, f.wallet(t, partner).InReview.IsZero())
	assert.True(t, f.wallet(t, partner).InHold.Equal(d("300")))
	f.assertConserved(t)
}

func TestManualReviewVerdictParksPartnerGain(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "800")
	a := f.create(t, "800", 40)
	ctx := context.Background()

	res, err := f.svc.SubmitEvidence(ctx, user(partner), reviewEvidence(a.AgreementID))
	require.NoError(t, err)
	assert.Equal(t, 0.85, res.Result.Score)
	assert.Equal(t, scoring.VerdictManualReview, res.Result.Verdict)
	assert.Equal(t, domain.StateManualReview, res.Agreement.State)
	assert.True(t, f.wallet(t, partner).InReview.Equal(d("320")))
	assert.True(t, f.wallet(t, funder).InEscrow.Equal(d("480")))

	_, err = f.svc.ApproveManually(ctx, user(partner), a.AgreementID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	res, err = f.svc.SubmitEvidence(ctx, user(partner), strongEvidence(a.AgreementID))
	require.NoError(t, err)
	assert.Equal(t, domain.StateHold, res.Agreement.State)
	assert.Equal(t, 2, res.Agreement.SubmissionCount)
	require.NotNil(t, res.Agreement.Evidence)
	assert.Equal(t, 2, res.Agreement.Evidence.Submission)
	assert.Equal(t, 2, res.Agreement.Score.Submission)
	require.Len(t, res.Agreement.EvidenceHistory, 1)
	first := res.Agreement.EvidenceHistory[0]
	assert.Equal(t, 1, first.Submission)
	assert.Equal(t, "captura_1.png", first.Files[0].Name)
	assert.Equal(t, reviewEvidence(a.AgreementID).Notes, first.Notes)
	assert.True(t, f.wallet(t, partner).InHold.Equal(d("320")))
	assert.True(t, f.wallet(t, partner).InReview.IsZero())

	_, err = f.svc.ApproveManually(ctx, user(funder), a.AgreementID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.assertConserved(t)
}

func TestConcurrentApprovalsReleaseOnce(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "1000")
	a := f.create(t, "1000", 25)
	ctx := context.Background()
	_, err := f.svc.SubmitEvidence(ctx, user(partner), reviewEvidence(a.AgreementID))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := f.svc.ApproveManually(ctx, user(funder), a.AgreementID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			res, err := f.svc.SubmitEvidence(ctx, user(partner), strongEvidence(a.AgreementID))
			if err == nil && res.Agreement.State == domain.StateHold {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	got := f.agreement(t, a.AgreementID)
	assert.Equal(t, domain.StateHold, got.State)
	assert.True(t, f.wallet(t, partner).InHold.Equal(d("250")))
	assert.True(t, f.wallet(t, partner).InReview.IsZero())
	f.assertConserved(t)
}

func TestGetAgreementVisibility(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "10")
	a := f.create(t, "10", 0)
	ctx := context.Background()

	_, err := f.svc.GetAgreement(ctx, user("stranger"), a.AgreementID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	got, err := f.svc.GetAgreement(ctx, user(partner), a.AgreementID)
	require.NoError(t, err)
	assert.Equal(t, a.AgreementID, got.AgreementID)
	_, err = f.svc.GetAgreement(ctx, staff(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestZeroCommissionAgreementCompletes(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "200")
	a := f.create(t, "200", 0)
	ctx := context.Background()

	_, err := f.svc.SubmitEvidence(ctx, user(partner), strongEvidence(a.AgreementID))
	require.NoError(t, err)
	f.clock.Advance(15 * 24 * time.Hour)
	completed, err := f.svc.ExpireDueHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.True(t, f.wallet(t, funder).Available.Equal(d("170")))
	assert.True(t, f.wallet(t, "platform").Available.Equal(d("30")))
	assert.True(t, f.wallet(t, partner).Total().IsZero())
	f.assertConserved(t)
}

func TestRearmHoldsSchedulesEveryHold(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "300")
	first := f.create(t, "100", 10)
	second := f.create(t, "100", 10)
	f.create(t, "100", 10)
	ctx := context.Background()
	_, err := f.svc.SubmitEvidence(ctx, user(partner), strongEvidence(first.AgreementID))
	require.NoError(t, err)
	_, err = f.svc.SubmitEvidence(ctx, user(partner), strongEvidence(second.AgreementID))
	require.NoError(t, err)
	f.holds.scheduled = map[string]time.Time{}

	armed, err := f.svc.RearmHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, armed)
	_, ok := f.holds.armed(first.AgreementID)
	assert.True(t, ok)
}

func TestPreviewMatchesStoredScore(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, funder, "100")
	a := f.create(t, "100", 10)
	ev := strongEvidence(a.AgreementID)

	preview, err := f.svc.PreviewScore(ev.Files, ev.Notes)
	require.NoError(t, err)
	res, err := f.svc.SubmitEvidence(context.Background(), user(partner), ev)
	require.NoError(t, err)
	assert.Equal(t, preview, res.Result)
	assert.Equal(t, preview.Score, res.Agreement.Score.Score)
}
