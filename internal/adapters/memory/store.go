// Package memory keeps agreements, wallets and the outbox in process memory.
// It backs tests and local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
)

type data struct {
	agreements  map[string]domain.Agreement
	wallets     map[string]domain.Wallet
	locks       map[string]domain.FundLock
	outbox      map[string]ports.OutboxRecord
	outboxOrder []string
}

func (d *data) clone() *data {
	out := &data{
		agreements:  make(map[string]domain.Agreement, len(d.agreements)),
		wallets:     make(map[string]domain.Wallet, len(d.wallets)),
		locks:       make(map[string]domain.FundLock, len(d.locks)),
		outbox:      make(map[string]ports.OutboxRecord, len(d.outbox)),
		outboxOrder: append([]string(nil), d.outboxOrder...),
	}
	for k, v := range d.agreements {
		out.agreements[k] = v.Clone()
	}
	for k, v := range d.wallets {
		out.wallets[k] = v
	}
	for k, v := range d.locks {
		out.locks[k] = v
	}
	for k, v := range d.outbox {
		out.outbox[k] = v
	}
	return out
}

// Store is a single-writer store: a unit of work holds the write lock for its
// whole duration and restores a snapshot when it fails.
type Store struct {
	mu   sync.RWMutex
	data *data

	Idempotency *IdempotencyRepository
}

func NewStore() *Store {
	return &Store{
		data: &data{
			agreements: map[string]domain.Agreement{},
			wallets:    map[string]domain.Wallet{},
			locks:      map[string]domain.FundLock{},
			outbox:     map[string]ports.OutboxRecord{},
		},
		Idempotency: &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
	}
}

// Repositories returns auto-commit repositories for reads outside a unit of
// work.
func (s *Store) Repositories() ports.Repositories {
	return s.bind(false)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(ctx, s.bind(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) bind(inTx bool) ports.Repositories {
	return ports.Repositories{
		Agreements: &AgreementRepository{store: s, inTx: inTx},
		Wallets:    &WalletRepository{store: s, inTx: inTx},
		FundLocks:  &FundLockRepository{store: s, inTx: inTx},
		Outbox:     &OutboxRepository{store: s, inTx: inTx},
	}
}

func (s *Store) read(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// TotalHoldings sums every bucket of every wallet.
func (s *Store) TotalHoldings() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, w := range s.data.wallets {
		total = total.Add(w.Total())
	}
	return total
}

type AgreementRepository struct {
	store *Store
	inTx  bool
}

func (r *AgreementRepository) Create(_ context.Context, row domain.Agreement) error {
	defer r.store.write(r.inTx)()
	if _, ok := r.store.data.agreements[row.AgreementID]; ok {
		return domain.ErrConflict
	}
	r.store.data.agreements[row.AgreementID] = row.Clone()
	return nil
}

func (r *AgreementRepository) Get(_ context.Context, agreementID string) (domain.Agreement, error) {
	defer r.store.read(r.inTx)()
	row, ok := r.store.data.agreements[strings.TrimSpace(agreementID)]
	if !ok {
		return domain.Agreement{}, domain.ErrNotFound
	}
	return row.Clone(), nil
}

func (r *AgreementRepository) GetForUpdate(ctx context.Context, agreementID string) (domain.Agreement, error) {
	return r.Get(ctx, agreementID)
}

func (r *AgreementRepository) Update(_ context.Context, row domain.Agreement) error {
	defer r.store.write(r.inTx)()
	if _, ok := r.store.data.agreements[row.AgreementID]; !ok {
		return domain.ErrNotFound
	}
	r.store.data.agreements[row.AgreementID] = row.Clone()
	return nil
}

func (r *AgreementRepository) ListByState(_ context.Context, state string, limit int) ([]domain.Agreement, error) {
	defer r.store.read(r.inTx)()
	out := make([]domain.Agreement, 0)
	for _, row := range r.store.data.agreements {
		if row.State == state {
			out = append(out, row.Clone())
		}
	}
	return sortAndLimit(out, limit), nil
}

func (r *AgreementRepository) ListHoldsDue(_ context.Context, now time.Time, limit int) ([]domain.Agreement, error) {
	defer r.store.read(r.inTx)()
	out := make([]domain.Agreement, 0)
	for _, row := range r.store.data.agreements {
		if row.State == domain.StateHold && row.HoldUntil != nil && !row.HoldUntil.After(now) {
			out = append(out, row.Clone())
		}
	}
	return sortAndLimit(out, limit), nil
}

func sortAndLimit(rows []domain.Agreement, limit int) []domain.Agreement {
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

type WalletRepository struct {
	store *Store
	inTx  bool
}

func (r *WalletRepository) Get(_ context.Context, userID string) (domain.Wallet, error) {
	defer r.store.read(r.inTx)()
	if w, ok := r.store.data.wallets[userID]; ok {
		return w, nil
	}
	return domain.Wallet{UserID: userID}, nil
}

func (r *WalletRepository) Credit(_ context.Context, userID string, bucket domain.Bucket, amount decimal.Decimal, at time.Time) error {
	defer r.store.write(r.inTx)()
	w := r.wallet(userID)
	if err := w.Credit(bucket, amount, at); err != nil {
		return err
	}
	r.store.data.wallets[userID] = w
	return nil
}

func (r *WalletRepository) Debit(_ context.Context, userID string, bucket domain.Bucket, amount decimal.Decimal, at time.Time) error {
	defer r.store.write(r.inTx)()
	w := r.wallet(userID)
	if err := w.Debit(bucket, amount, at); err != nil {
		return err
	}
	r.store.data.wallets[userID] = w
	return nil
}

func (r *WalletRepository) wallet(userID string) domain.Wallet {
	if w, ok := r.store.data.wallets[userID]; ok {
		return w
	}
	return domain.Wallet{UserID: userID}
}

type FundLockRepository struct {
	store *Store
	inTx  bool
}

func (r *FundLockRepository) Create(_ context.Context, row domain.FundLock) error {
	defer r.store.write(r.inTx)()
	if _, ok := r.store.data.locks[row.AgreementID]; ok {
		return domain.ErrAlreadyLocked
	}
	r.store.data.locks[row.AgreementID] = row
	return nil
}

func (r *FundLockRepository) GetForUpdate(_ context.Context, agreementID string) (domain.FundLock, error) {
	defer r.store.read(r.inTx)()
	row, ok := r.store.data.locks[agreementID]
	if !ok {
		return domain.FundLock{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *FundLockRepository) Update(_ context.Context, row domain.FundLock) error {
	defer r.store.write(r.inTx)()
	if _, ok := r.store.data.locks[row.AgreementID]; !ok {
		return domain.ErrNotFound
	}
	r.store.data.locks[row.AgreementID] = row
	return nil
}

type OutboxRepository struct {
	store *Store
	inTx  bool
}

func (r *OutboxRepository) Enqueue(_ context.Context, row ports.OutboxRecord) error {
	defer r.store.write(r.inTx)()
	if _, ok := r.store.data.outbox[row.RecordID]; ok {
		return domain.ErrConflict
	}
	r.store.data.outbox[row.RecordID] = row
	r.store.data.outboxOrder = append(r.store.data.outboxOrder, row.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	defer r.store.read(r.inTx)()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.store.data.outboxOrder {
		row, ok := r.store.data.outbox[id]
		if !ok || row.SentAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	defer r.store.write(r.inTx)()
	row, ok := r.store.data.outbox[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	row.SentAt = &at
	r.store.data.outbox[recordID] = row
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, recordID, errMsg string, _ time.Time) error {
	defer r.store.write(r.inTx)()
	row, ok := r.store.data.outbox[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	row.RetryCount++
	row.LastError = errMsg
	r.store.data.outbox[recordID] = row
	return nil
}

type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	if now.After(row.ExpiresAt) {
		delete(r.rows, key)
		return nil, nil
	}
	c := row
	c.ResponseBody = append([]byte(nil), row.ResponseBody...)
	return &c, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[key]; ok {
		return domain.ErrConflict
	}
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	r.rows[key] = row
	return nil
}

func (r *IdempotencyRepository) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok && len(row.ResponseBody) == 0 {
		delete(r.rows, key)
	}
	return nil
}
