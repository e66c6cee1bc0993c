package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modeh/internal/models/db_models"
)

// walletStoreStub serializes mutations per owner the way the row lock
// does in postgres.
type walletStoreStub struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*db_models.Wallet
}

func newWalletStoreStub() *walletStoreStub {
	return &walletStoreStub{wallets: make(map[uuid.UUID]*db_models.Wallet)}
}

func (s *walletStoreStub) get(ownerID uuid.UUID) *db_models.Wallet {
	w, ok := s.wallets[ownerID]
	if !ok {
		w = &db_models.Wallet{
			OwnerID:        ownerID,
			Pending:        decimal.Zero,
			Available:      decimal.Zero,
			LifetimeEarned: decimal.Zero,
		}
		s.wallets[ownerID] = w
	}
	return w
}

func (s *walletStoreStub) CreditPending(tx *gorm.DB, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error) {
	return s.Credit(context.Background(), ownerID, amount)
}

func (s *walletStoreStub) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.get(ownerID)
	w.Pending = w.Pending.Add(amount)
	w.LifetimeEarned = w.LifetimeEarned.Add(amount)
	snapshot := *w
	return &snapshot, nil
}

func (s *walletStoreStub) SettlePending(ctx context.Context, ownerID uuid.UUID, amount *decimal.Decimal) (*db_models.Wallet, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.get(ownerID)
	moved := w.Pending
	if amount != nil && amount.LessThan(moved) {
		moved = *amount
	}
	w.Pending = w.Pending.Sub(moved)
	w.Available = w.Available.Add(moved)
	snapshot := *w
	return &snapshot, moved, nil
}

func (s *walletStoreStub) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*db_models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[ownerID]
	if !ok {
		return nil, nil
	}
	snapshot := *w
	return &snapshot, nil
}

type publisherStub struct {
	mu       sync.Mutex
	events   []string
	payloads []interface{}
	err      error
}

func (p *publisherStub) Publish(ctx context.Context, eventName string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventName)
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *publisherStub) Close() {}

func TestWalletCredit_ConcurrentCreditsDoNotLoseUpdates(t *testing.T) {
	store := newWalletStoreStub()
	svc := NewWalletService(store, &publisherStub{})
	owner := uuid.New()

	const n = 50
	amount := decimal.RequireFromString("13.37")

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Credit(context.Background(), owner, amount); err != nil {
				t.Errorf("credit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	wallet, err := svc.GetWallet(context.Background(), owner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := amount.Mul(decimal.NewFromInt(n))
	if !wallet.Pending.Equal(want) {
		t.Fatalf("pending: expected %s, got %s", want, wallet.Pending)
	}
	if !wallet.LifetimeEarned.Equal(want) {
		t.Fatalf("lifetime_earned: expected %s, got %s", want, wallet.LifetimeEarned)
	}
}

func TestWalletCredit_NotifyFailureDoesNotFailCredit(t *testing.T) {
	store := newWalletStoreStub()
	publisher := &publisherStub{err: errors.New("broker down")}
	svc := NewWalletService(store, publisher)
	owner := uuid.New()

	wallet, err := svc.Credit(context.Background(), owner, decimal.RequireFromString("25.00"))
	if err != nil {
		t.Fatalf("credit must survive a dead broker, got %v", err)
	}
	if !wallet.Pending.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("pending: expected 25.00, got %s", wallet.Pending)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one publish attempt, got %d", len(publisher.events))
	}
}

func TestWalletSettlePending_ClampsAtPending(t *testing.T) {
	store := newWalletStoreStub()
	svc := NewWalletService(store, &publisherStub{})
	owner := uuid.New()

	if _, err := svc.Credit(context.Background(), owner, decimal.RequireFromString("30.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	over := decimal.RequireFromString("100.00")
	wallet, err := svc.SettlePending(context.Background(), owner, &over)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !wallet.Pending.Equal(decimal.Zero) {
		t.Fatalf("pending: expected 0, got %s", wallet.Pending)
	}
	if !wallet.Available.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("available: expected 30.00, got %s", wallet.Available)
	}
	if !wallet.LifetimeEarned.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("lifetime_earned must not change on settle, got %s", wallet.LifetimeEarned)
	}
}

func TestWalletSettlePending_NotifiesMovedAmount(t *testing.T) {
	store := newWalletStoreStub()
	publisher := &publisherStub{}
	svc := NewWalletService(store, publisher)
	owner := uuid.New()

	if _, err := svc.Credit(context.Background(), owner, decimal.RequireFromString("30.00")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Request more than is pending; the notification must carry the
	// clamped amount that actually moved, not the request.
	over := decimal.RequireFromString("100.00")
	if _, err := svc.SettlePending(context.Background(), owner, &over); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(publisher.payloads) != 2 {
		t.Fatalf("expected credit and settle events, got %d", len(publisher.payloads))
	}
	payload, ok := publisher.payloads[1].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected payload type %T", publisher.payloads[1])
	}
	amount, ok := payload["amount"].(decimal.Decimal)
	if !ok {
		t.Fatalf("unexpected amount type %T", payload["amount"])
	}
	if !amount.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("settle event amount: expected 30.00, got %s", amount)
	}
}

func TestWalletSettlePending_NilAmountReleasesEverything(t *testing.T) {
	store := newWalletStoreStub()
	svc := NewWalletService(store, &publisherStub{})
	owner := uuid.New()

	if _, err := svc.Credit(context.Background(), owner, decimal.RequireFromString("12.50")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Credit(context.Background(), owner, decimal.RequireFromString("7.25")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wallet, err := svc.SettlePending(context.Background(), owner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !wallet.Pending.Equal(decimal.Zero) {
		t.Fatalf("pending: expected 0, got %s", wallet.Pending)
	}
	if !wallet.Available.Equal(decimal.RequireFromString("19.75")) {
		t.Fatalf("available: expected 19.75, got %s", wallet.Available)
	}
}
