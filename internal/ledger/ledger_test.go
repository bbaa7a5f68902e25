package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viralforge/sala-escrow/internal/adapters/memory"
	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ledger"
	"github.com/viralforge/sala-escrow/internal/ports"
	"github.com/viralforge/sala-escrow/pkg/feesplit"
)

var now = time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func setup(t *testing.T, deposit string) (*memory.Store, *ledger.EscrowLedger) {
	t.Helper()
	store := memory.NewStore()
	l := ledger.New("")
	err := store.WithinTx(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		return l.Deposit(ctx, repos, "marca", d(deposit), now)
	})
	require.NoError(t, err)
	return store, l
}

func tx(store *memory.Store, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return store.WithinTx(context.Background(), fn)
}

func wallet(t *testing.T, store *memory.Store, user string) domain.Wallet {
	t.Helper()
	w, err := store.Repositories().Wallets.Get(context.Background(), user)
	require.NoError(t, err)
	return w
}

func TestLockMovesFundsIntoEscrow(t *testing.T) {
	store, l := setup(t, "3000")

	err := tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("2500"), now)
		return err
	})
	require.NoError(t, err)

	w := wallet(t, store, "marca")
	assert.True(t, w.Available.Equal(d("500")))
	assert.True(t, w.InEscrow.Equal(d("2500")))
}

func TestLockRejectsShortfallAndDuplicates(t *testing.T) {
	store, l := setup(t, "100")

	err := tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("150"), now)
		return err
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, wallet(t, store, "marca").Available.Equal(d("100")), "failed lock must not move money")

	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("60"), now)
		return err
	}))
	err = tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("10"), now)
		return err
	})
	require.ErrorIs(t, err, domain.ErrAlreadyLocked)
	assert.True(t, wallet(t, store, "marca").InEscrow.Equal(d("60")))
}

func TestReleaseFromHoldSettlesEveryParty(t *testing.T) {
	store, l := setup(t, "2500")
	split, err := feesplit.Calculate(d("2500"), 25)
	require.NoError(t, err)

	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", split.Total, now); err != nil {
			return err
		}
		if _, err := l.MoveToReview(ctx, repos, "sala-1", split.PartnerGain, now); err != nil {
			return err
		}
		_, err := l.MoveToHold(ctx, repos, "sala-1", split.PartnerGain, now)
		return err
	}))

	socio := wallet(t, store, "socio")
	assert.True(t, socio.InHold.Equal(d("625")))
	assert.True(t, socio.InReview.IsZero())
	assert.True(t, wallet(t, store, "marca").InEscrow.Equal(d("1875")))

	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Release(ctx, repos, "sala-1", split, now)
		return err
	}))

	assert.True(t, wallet(t, store, "socio").Available.Equal(d("625")))
	assert.True(t, wallet(t, store, "socio").InHold.IsZero())
	assert.True(t, wallet(t, store, "platform").Available.Equal(d("375")))
	marca := wallet(t, store, "marca")
	assert.True(t, marca.Available.Equal(d("1500")))
	assert.True(t, marca.InEscrow.IsZero())
	assert.True(t, store.TotalHoldings().Equal(d("2500")))
}

func TestReleaseIsAtMostOnce(t *testing.T) {
	store, l := setup(t, "1000")
	split, err := feesplit.Calculate(d("1000"), 10)
	require.NoError(t, err)
	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", split.Total, now)
		return err
	}))

	release := func() error {
		return tx(store, func(ctx context.Context, repos ports.Repositories) error {
			_, err := l.Release(ctx, repos, "sala-1", split, now)
			return err
		})
	}
	require.NoError(t, release())
	require.ErrorIs(t, release(), domain.ErrAlreadyReleased)
	require.ErrorIs(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Refund(ctx, repos, "sala-1", now)
		return err
	}), domain.ErrAlreadyReleased)

	assert.True(t, wallet(t, store, "socio").Available.Equal(d("100")))
	assert.True(t, store.TotalHoldings().Equal(d("1000")))
}

func TestSecondMoveToHoldFails(t *testing.T) {
	store, l := setup(t, "100")
	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("100"), now); err != nil {
			return err
		}
		_, err := l.MoveToHold(ctx, repos, "sala-1", d("20"), now)
		return err
	}))
	err := tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.MoveToHold(ctx, repos, "sala-1", d("20"), now)
		return err
	})
	require.ErrorIs(t, err, domain.ErrAlreadyReleased)
	assert.True(t, wallet(t, store, "socio").InHold.Equal(d("20")))
}

func TestRefundPullsBackPartnerShare(t *testing.T) {
	store, l := setup(t, "800")
	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("800"), now); err != nil {
			return err
		}
		_, err := l.MoveToHold(ctx, repos, "sala-1", d("200"), now)
		return err
	}))
	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Refund(ctx, repos, "sala-1", now)
		return err
	}))

	assert.True(t, wallet(t, store, "marca").Available.Equal(d("800")))
	assert.True(t, wallet(t, store, "socio").Total().IsZero())
}

func TestReleaseRejectsMismatchedSplit(t *testing.T) {
	store, l := setup(t, "100")
	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("100"), now)
		return err
	}))
	bad := feesplit.Split{Total: d("100"), PlatformFee: d("15"), PartnerGain: d("10"), NetToFunder: d("80")}
	err := tx(store, func(ctx context.Context, repos ports.Repositories) error {
		_, err := l.Release(ctx, repos, "sala-1", bad, now)
		return err
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.True(t, wallet(t, store, "marca").InEscrow.Equal(d("100")))
}

func TestFailedUnitOfWorkLeavesNoTrace(t *testing.T) {
	store, l := setup(t, "500")
	boom := errors.New("boom")
	err := tx(store, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := l.Lock(ctx, repos, "sala-1", "marca", "socio", d("300"), now); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, wallet(t, store, "marca").Available.Equal(d("500")))

	_, err = store.Repositories().FundLocks.GetForUpdate(context.Background(), "sala-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithdrawNeedsAvailableBalance(t *testing.T) {
	store, l := setup(t, "50")
	err := tx(store, func(ctx context.Context, repos ports.Repositories) error {
		return l.Withdraw(ctx, repos, "marca", d("60"), now)
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NoError(t, tx(store, func(ctx context.Context, repos ports.Repositories) error {
		return l.Withdraw(ctx, repos, "marca", d("20"), now)
	}))
	assert.True(t, wallet(t, store, "marca").Available.Equal(d("30")))
}
