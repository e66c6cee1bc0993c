package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modeh/internal/models/db_models"
	"modeh/internal/repositories"
	"modeh/pkg/utils"
)

type billableRepoStub struct {
	owners []repositories.OwnerUnits
}

func (s *billableRepoStub) Resolve(tx *gorm.DB, billableType db_models.BillableType, billableID uuid.UUID) (repositories.Billable, error) {
	return nil, utils.ErrBillableNotFound
}

func (s *billableRepoStub) OwnersForItem(tx *gorm.DB, itemType db_models.ItemType, itemID uuid.UUID) ([]repositories.OwnerUnits, error) {
	return s.owners, nil
}

type settlementRepoStub struct {
	exists  bool
	created []db_models.SettlementRecord
}

func (s *settlementRepoStub) ExistsForCheckoutID(tx *gorm.DB, checkoutID string) (bool, error) {
	return s.exists, nil
}

func (s *settlementRepoStub) CreateAll(tx *gorm.DB, records []db_models.SettlementRecord) error {
	s.created = append(s.created, records...)
	return nil
}

func (s *settlementRepoStub) ListByCheckoutID(ctx context.Context, checkoutID string) ([]db_models.SettlementRecord, error) {
	return s.created, nil
}

type walletRepoStub struct {
	credits map[uuid.UUID]decimal.Decimal
}

func (s *walletRepoStub) CreditPending(tx *gorm.DB, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error) {
	if s.credits == nil {
		s.credits = make(map[uuid.UUID]decimal.Decimal)
	}
	s.credits[ownerID] = s.credits[ownerID].Add(amount)
	return &db_models.Wallet{OwnerID: ownerID, Pending: s.credits[ownerID]}, nil
}

func (s *walletRepoStub) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error) {
	return s.CreditPending(nil, ownerID, amount)
}

func (s *walletRepoStub) SettlePending(ctx context.Context, ownerID uuid.UUID, amount *decimal.Decimal) (*db_models.Wallet, decimal.Decimal, error) {
	return nil, decimal.Zero, nil
}

func (s *walletRepoStub) GetByOwnerID(ctx context.Context, ownerID uuid.UUID) (*db_models.Wallet, error) {
	return nil, nil
}

func newDistributionFixture(owners []repositories.OwnerUnits) (*settlementRepoStub, *walletRepoStub, DistributionServiceInterface) {
	settlements := &settlementRepoStub{}
	wallets := &walletRepoStub{}
	svc := NewDistributionService(&billableRepoStub{owners: owners}, settlements, wallets)
	return settlements, wallets, svc
}

func testTransaction(amount string) *db_models.PaymentTransaction {
	return &db_models.PaymentTransaction{
		CheckoutRequestID: "ws_CO_test_001",
		Amount:            decimal.RequireFromString(amount),
		Status:            db_models.TxnStatusSuccess,
	}
}

func testSettleInfo() *repositories.SettleInfo {
	return &repositories.SettleInfo{
		ItemType: db_models.ItemQuiz,
		ItemID:   uuid.New(),
		PayerID:  uuid.New(),
	}
}

func mustEqual(t *testing.T, got, want decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: expected %s, got %s", label, want, got)
	}
}

func TestDistribute_SingleOwner(t *testing.T) {
	owner := uuid.New()
	settlements, wallets, svc := newDistributionFixture([]repositories.OwnerUnits{{OwnerID: owner, Units: 1}})

	records, err := svc.Distribute(nil, testTransaction("100"), testSettleInfo(), decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	mustEqual(t, records[0].StakeholderShare, decimal.RequireFromString("40.00"), "stakeholder share")
	mustEqual(t, records[0].PlatformShare, decimal.RequireFromString("60.00"), "platform share")
	mustEqual(t, wallets.credits[owner], decimal.RequireFromString("40.00"), "wallet credit")

	if len(settlements.created) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(settlements.created))
	}
}

func TestDistribute_ThreeOwnersRoundingCorrection(t *testing.T) {
	owners := []repositories.OwnerUnits{
		{OwnerID: uuid.New(), Units: 1},
		{OwnerID: uuid.New(), Units: 1},
		{OwnerID: uuid.New(), Units: 1},
	}
	_, wallets, svc := newDistributionFixture(owners)

	records, err := svc.Distribute(nil, testTransaction("100"), testSettleInfo(), decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// Pool 40.00 over 3 owners: 13.333... rounds to 13.33 each, the
	// 0.01 residue goes to the first owner.
	mustEqual(t, records[0].StakeholderShare, decimal.RequireFromString("13.34"), "first share")
	mustEqual(t, records[1].StakeholderShare, decimal.RequireFromString("13.33"), "second share")
	mustEqual(t, records[2].StakeholderShare, decimal.RequireFromString("13.33"), "third share")

	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(rec.StakeholderShare).Add(rec.PlatformShare)
	}
	mustEqual(t, total, decimal.RequireFromString("100"), "share total")

	for _, o := range owners {
		if _, ok := wallets.credits[o.OwnerID]; !ok {
			t.Fatalf("owner %s did not receive a credit", o.OwnerID)
		}
	}
}

func TestDistribute_ExactSumForManyOwners(t *testing.T) {
	amount := decimal.RequireFromString("100")
	pct := decimal.NewFromInt(60)

	for n := 1; n <= 50; n++ {
		t.Run(fmt.Sprintf("%d_owners", n), func(t *testing.T) {
			owners := make([]repositories.OwnerUnits, 0, n)
			for i := 0; i < n; i++ {
				owners = append(owners, repositories.OwnerUnits{OwnerID: uuid.New(), Units: 1})
			}
			_, _, svc := newDistributionFixture(owners)

			records, err := svc.Distribute(nil, testTransaction("100"), testSettleInfo(), pct)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			total := decimal.Zero
			for _, rec := range records {
				total = total.Add(rec.StakeholderShare).Add(rec.PlatformShare)
			}
			if !total.Equal(amount) {
				t.Fatalf("shares sum to %s, expected %s", total, amount)
			}
		})
	}
}

func TestDistribute_WeightedByUnits(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	owners := []repositories.OwnerUnits{
		{OwnerID: first, Units: 3},
		{OwnerID: second, Units: 1},
	}
	_, _, svc := newDistributionFixture(owners)

	records, err := svc.Distribute(nil, testTransaction("100"), testSettleInfo(), decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mustEqual(t, records[0].StakeholderShare, decimal.RequireFromString("30.00"), "three-unit share")
	mustEqual(t, records[1].StakeholderShare, decimal.RequireFromString("10.00"), "one-unit share")
}

func TestDistribute_NoOwnerFoldsIntoPlatform(t *testing.T) {
	settlements, wallets, svc := newDistributionFixture(nil)

	records, err := svc.Distribute(nil, testTransaction("100"), testSettleInfo(), decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected a single platform-only record, got %d", len(records))
	}
	if records[0].StakeholderID != nil {
		t.Fatal("expected nil stakeholder on platform-only record")
	}

	mustEqual(t, records[0].PlatformShare, decimal.RequireFromString("100"), "platform share")
	mustEqual(t, records[0].StakeholderShare, decimal.Zero, "stakeholder share")

	if len(wallets.credits) != 0 {
		t.Fatalf("expected no wallet credits, got %d", len(wallets.credits))
	}
	if len(settlements.created) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(settlements.created))
	}
}

func TestDistribute_IdempotentPerCheckoutID(t *testing.T) {
	settlements, wallets, svc := newDistributionFixture([]repositories.OwnerUnits{{OwnerID: uuid.New(), Units: 1}})
	settlements.exists = true

	records, err := svc.Distribute(nil, testTransaction("100"), testSettleInfo(), decimal.NewFromInt(60))
	if err != utils.ErrSettlementAlreadyApplied {
		t.Fatalf("expected ErrSettlementAlreadyApplied, got %v", err)
	}
	if records != nil {
		t.Fatal("expected no records on re-run")
	}
	if len(wallets.credits) != 0 {
		t.Fatal("expected no wallet credits on re-run")
	}
}

func TestListSettlements_ReturnsWrittenRecords(t *testing.T) {
	owner := uuid.New()
	_, _, svc := newDistributionFixture([]repositories.OwnerUnits{{OwnerID: owner, Units: 1}})

	created, err := svc.Distribute(nil, testTransaction("100"), testSettleInfo(), decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listed, err := svc.ListSettlements(context.Background(), "ws_CO_test_001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != len(created) {
		t.Fatalf("expected %d records, got %d", len(created), len(listed))
	}
	mustEqual(t, listed[0].StakeholderShare, created[0].StakeholderShare, "listed share")
}

func TestComputeShares_RemainderToFirstOwner(t *testing.T) {
	tests := []struct {
		name   string
		pool   string
		units  []int
		shares []string
	}{
		{name: "even split", pool: "40.00", units: []int{1, 1, 1, 1}, shares: []string{"10.00", "10.00", "10.00", "10.00"}},
		{name: "one cent residue", pool: "40.00", units: []int{1, 1, 1}, shares: []string{"13.34", "13.33", "13.33"}},
		{name: "negative residue", pool: "0.20", units: []int{1, 1, 1}, shares: []string{"0.06", "0.07", "0.07"}},
		{name: "single owner", pool: "40.00", units: []int{1}, shares: []string{"40.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owners := make([]repositories.OwnerUnits, 0, len(tt.units))
			for _, u := range tt.units {
				owners = append(owners, repositories.OwnerUnits{OwnerID: uuid.New(), Units: u})
			}

			pool := decimal.RequireFromString(tt.pool)
			shares := computeShares(pool, owners)
			if len(shares) != len(tt.shares) {
				t.Fatalf("expected %d shares, got %d", len(tt.shares), len(shares))
			}

			total := decimal.Zero
			for i, share := range shares {
				want := decimal.RequireFromString(tt.shares[i])
				if !share.Share.Equal(want) {
					t.Fatalf("share %d: expected %s, got %s", i, want, share.Share)
				}
				total = total.Add(share.Share)
			}
			if !total.Equal(pool) {
				t.Fatalf("shares sum to %s, expected pool %s", total, pool)
			}
		})
	}
}
