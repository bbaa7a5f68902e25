package application

import (
	"context"
	"strings"

	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
)

func (s *Service) GetWalletBalance(ctx context.Context, actor Actor, userID string) (domain.Wallet, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Wallet{}, domain.ErrUnauthorized
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Wallet{}, domain.ErrInvalidInput
	}
	if userID != actor.SubjectID && !actor.isStaff() {
		return domain.Wallet{}, domain.ErrForbidden
	}
	return s.reads.Wallets.Get(ctx, userID)
}

// Deposit credits a payment already settled by the card rail.
func (s *Service) Deposit(ctx context.Context, actor Actor, input WalletMovementInput) (domain.Wallet, error) {
	return s.moveWallet(ctx, actor, input, "deposit", domain.EventWalletDepositSettled)
}

// Withdraw debits a payout from the available balance.
func (s *Service) Withdraw(ctx context.Context, actor Actor, input WalletMovementInput) (domain.Wallet, error) {
	return s.moveWallet(ctx, actor, input, "withdraw", domain.EventWalletWithdrawn)
}

func (s *Service) moveWallet(ctx context.Context, actor Actor, input WalletMovementInput, operation, eventType string) (domain.Wallet, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Wallet{}, domain.ErrUnauthorized
	}
	if !actor.isStaff() {
		return domain.Wallet{}, domain.ErrForbidden
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.Wallet{}, domain.ErrIdempotencyRequired
	}
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return domain.Wallet{}, domain.ErrInvalidInput
	}
	return idempotent(ctx, s, actor, operation, input, func() (domain.Wallet, error) {
		var out domain.Wallet
		err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
			now := s.nowFn()
			var err error
			if operation == "deposit" {
				err = s.ledger.Deposit(ctx, repos, input.UserID, input.Amount, now)
			} else {
				err = s.ledger.Withdraw(ctx, repos, input.UserID, input.Amount, now)
			}
			if err != nil {
				return err
			}
			if out, err = repos.Wallets.Get(ctx, input.UserID); err != nil {
				return err
			}
			return s.enqueueWalletMovement(ctx, repos, eventType, out, input.Amount.StringFixed(2), actor.RequestID, now)
		})
		if err != nil {
			return domain.Wallet{}, err
		}
		return out, nil
	})
}
