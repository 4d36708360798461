package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"starlight/internal/codes"
	"starlight/internal/ledger"
	"starlight/internal/storage"
	"starlight/internal/websocket"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	now   time.Time
	today string
}

func (c *fixedClock) Now() time.Time { return c.now }
func (c *fixedClock) Today() string  { return c.today }

type memStore struct {
	data    map[string][]byte
	failing bool
	failKey string
	writes  int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Read(_ context.Context, key string) ([]byte, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Write(_ context.Context, key string, data []byte) error {
	if m.failing || (m.failKey != "" && key == m.failKey) {
		return errors.New("disk full")
	}
	m.writes++
	m.data[key] = append([]byte(nil), data...)
	return nil
}

type recordingHub struct {
	updates []websocket.BalanceUpdate
}

func (h *recordingHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	h.updates = append(h.updates, update)
}

func newTestBank(t *testing.T) (*BankService, *memStore, *fixedClock, *recordingHub) {
	t.Helper()
	store := newMemStore()
	clock := &fixedClock{now: testNow, today: "2024-01-15"}
	hub := &recordingHub{}
	svc, err := NewBankService(store, clock, hub, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc, store, clock, hub
}

func TestDepositPersistsAndBroadcasts(t *testing.T) {
	svc, store, _, hub := newTestBank(t)
	ctx := context.Background()

	tx, err := svc.Deposit(ctx, "user-1", 500, "Sign-on bonus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != 500 || tx.Kind != ledger.KindDeposit {
		t.Fatalf("unexpected transaction: %#v", tx)
	}
	personal, global := svc.Balance("user-1")
	if personal != 500 || global != 500 {
		t.Fatalf("unexpected balances: %d / %d", personal, global)
	}

	// The committed snapshot reflects the deposit.
	var persisted ledger.Bank
	if err := json.Unmarshal(store.data[bankKey], &persisted); err != nil {
		t.Fatalf("persisted snapshot unreadable: %v", err)
	}
	if persisted.UserBalance("user-1") != 500 {
		t.Fatalf("snapshot missing deposit: %d", persisted.UserBalance("user-1"))
	}

	if len(hub.updates) != 1 || hub.updates[0].PersonalBalance != 500 {
		t.Fatalf("unexpected broadcasts: %#v", hub.updates)
	}
}

func TestSpendInsufficientLeavesServiceUntouched(t *testing.T) {
	svc, store, _, _ := newTestBank(t)
	ctx := context.Background()
	_, _ = svc.Deposit(ctx, "user-1", 500, "")
	writesBefore := store.writes

	_, err := svc.Spend(ctx, "user-1", 600, "too much")
	var insufficient *ledger.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	personal, _ := svc.Balance("user-1")
	if personal != 500 {
		t.Fatalf("balance changed after rejected spend: %d", personal)
	}
	if store.writes != writesBefore {
		t.Fatal("rejected spend reached storage")
	}
}

func TestStorageFailureRollsBack(t *testing.T) {
	svc, store, _, _ := newTestBank(t)
	ctx := context.Background()
	_, _ = svc.Deposit(ctx, "user-1", 500, "")

	store.failing = true
	_, err := svc.Spend(ctx, "user-1", 100, "")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	store.failing = false

	personal, _ := svc.Balance("user-1")
	if personal != 500 {
		t.Fatalf("failed write mutated in-memory state: %d", personal)
	}
	if len(svc.Recent(10, "")) != 1 {
		t.Fatal("failed spend left a transaction behind")
	}
}

func TestRedeemDepositCodeOnce(t *testing.T) {
	svc, _, _, _ := newTestBank(t)
	ctx := context.Background()
	if _, err := svc.IssueCode(ctx, "DEP-50-AB12CD", "", codes.Package{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tx, err := svc.Redeem(ctx, "dep-50-ab12cd", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != 50 || tx.Kind != ledger.KindRedeemCode {
		t.Fatalf("unexpected transaction: %#v", tx)
	}
	personal, _ := svc.Balance("user-1")
	if personal != 50 {
		t.Fatalf("code amount not credited: %d", personal)
	}

	// Second redemption fails and credits nothing.
	if _, err := svc.Redeem(ctx, "DEP-50-AB12CD", "user-2"); !errors.Is(err, codes.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
	if other, _ := svc.Balance("user-2"); other != 0 {
		t.Fatalf("replayed code credited: %d", other)
	}

	bank, registry := svc.Snapshot()
	if !bank.CodeUsed("DEP-50-AB12CD") {
		t.Fatal("used code missing from bank audit list")
	}
	row, _ := registry.Find("DEP-50-AB12CD")
	if row.Status != codes.StatusUsed || row.UsedBy != "user-1" {
		t.Fatalf("registry not stamped: %#v", row)
	}
}

func TestRedeemRejectsReplayAfterPartialCommit(t *testing.T) {
	svc, store, clock, _ := newTestBank(t)
	ctx := context.Background()
	if _, err := svc.IssueCode(ctx, "DEP-50-AB12CD", "", codes.Package{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Bank snapshot commits, registry snapshot fails mid-redemption.
	store.failKey = codesKey
	if _, err := svc.Redeem(ctx, "DEP-50-AB12CD", "user-1"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	store.failKey = ""

	// A restart loads the credited bank alongside a registry that still says
	// new. The used-code list on the bank must block the second redemption.
	reloaded, err := NewBankService(store, clock, nil, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reloaded.Redeem(ctx, "DEP-50-AB12CD", "user-2"); !errors.Is(err, codes.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}
	if other, _ := reloaded.Balance("user-2"); other != 0 {
		t.Fatalf("replayed code credited after restart: %d", other)
	}
}

func TestRedeemValidation(t *testing.T) {
	svc, _, _, _ := newTestBank(t)
	ctx := context.Background()

	if _, err := svc.Redeem(ctx, "not-a-code", "user-1"); !errors.Is(err, codes.ErrMalformedCode) {
		t.Fatalf("expected ErrMalformedCode, got %v", err)
	}
	// Well-formed but never issued.
	if _, err := svc.Redeem(ctx, "DEP-50-ZZ99XX", "user-1"); !errors.Is(err, codes.ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
	// Issued but over the ceiling.
	if _, err := svc.IssueCode(ctx, "DEP-99999-BIGONE", "", codes.Package{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Redeem(ctx, "DEP-99999-BIGONE", "user-1"); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
	if personal, _ := svc.Balance("user-1"); personal != 0 {
		t.Fatalf("rejected redemptions credited: %d", personal)
	}
}

func TestRedeemAccessCodeGrants(t *testing.T) {
	svc, _, _, _ := newTestBank(t)
	ctx := context.Background()
	_, _ = svc.IssueCode(ctx, "FRONTIER-ABC123", "", codes.Package{Title: "Frontier", SignOnBonus: 500})

	tx, err := svc.RedeemAccessCode(ctx, "frontier-abc123", "user-1", "Sign-on bonus (Frontier)", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != 500 {
		t.Fatalf("expected package bonus 500, got %d", tx.Amount)
	}
	if _, err := svc.RedeemAccessCode(ctx, "FRONTIER-ABC123", "user-2", "", 100); !errors.Is(err, codes.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}

	// A code with no package grant falls back to the supplied bonus.
	_, _ = svc.IssueCode(ctx, "FRONTIER-PLAIN1", "", codes.Package{})
	tx, err = svc.RedeemAccessCode(ctx, "FRONTIER-PLAIN1", "user-3", "", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != 100 {
		t.Fatalf("expected fallback bonus 100, got %d", tx.Amount)
	}
}

func TestDailyBonusOncePerDay(t *testing.T) {
	svc, _, clock, _ := newTestBank(t)
	ctx := context.Background()

	tx, applied, err := svc.DailyBonus(ctx, "user-1")
	if err != nil || !applied {
		t.Fatalf("expected bonus applied, got applied=%v err=%v", applied, err)
	}
	if tx.Amount != ledger.DailyBonusAmount {
		t.Fatalf("unexpected bonus amount: %d", tx.Amount)
	}
	_, applied, err = svc.DailyBonus(ctx, "user-1")
	if err != nil || applied {
		t.Fatalf("second claim should be a no-op, got applied=%v err=%v", applied, err)
	}

	clock.today = "2024-01-16"
	_, applied, _ = svc.DailyBonus(ctx, "user-1")
	if !applied {
		t.Fatal("bonus should apply on the next day")
	}
	personal, _ := svc.Balance("user-1")
	if personal != 2*ledger.DailyBonusAmount {
		t.Fatalf("unexpected balance after two days: %d", personal)
	}
}

func TestLoadRecoversFromCorruptSnapshots(t *testing.T) {
	store := newMemStore()
	store.data[bankKey] = []byte("{broken")
	store.data[codesKey] = []byte("")
	clock := &fixedClock{now: testNow, today: "2024-01-15"}

	svc, err := NewBankService(store, clock, nil, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, global := svc.Balance("user-1"); global != 0 {
		t.Fatalf("recovered bank not empty: %d", global)
	}
	// Recovered defaults are written back immediately.
	var bank ledger.Bank
	if err := json.Unmarshal(store.data[bankKey], &bank); err != nil {
		t.Fatalf("reseeded snapshot unreadable: %v", err)
	}
}

func TestStateSurvivesReload(t *testing.T) {
	svc, store, clock, _ := newTestBank(t)
	ctx := context.Background()
	_, _ = svc.Deposit(ctx, "user-1", 500, "")
	_, _ = svc.IssueCode(ctx, "DEP-50-AB12CD", "", codes.Package{})
	_, _ = svc.Redeem(ctx, "DEP-50-AB12CD", "user-1")

	reloaded, err := NewBankService(store, clock, nil, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	personal, global := reloaded.Balance("user-1")
	if personal != 550 || global != 550 {
		t.Fatalf("state lost across reload: %d / %d", personal, global)
	}
	if _, err := reloaded.Redeem(ctx, "DEP-50-AB12CD", "user-2"); !errors.Is(err, codes.ErrAlreadyUsed) {
		t.Fatalf("used-code guard lost across reload: %v", err)
	}
}

func TestReconcileRebuildsBalances(t *testing.T) {
	svc, _, _, _ := newTestBank(t)
	ctx := context.Background()
	_, _ = svc.Deposit(ctx, "user-1", 100, "")
	_, _ = svc.Spend(ctx, "user-1", 30, "")
	_, _ = svc.Award(ctx, "user-2", 50, "")

	rebuilt, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rebuilt != 2 {
		t.Fatalf("expected 2 users rebuilt, got %d", rebuilt)
	}
	personal, _ := svc.Balance("user-1")
	if personal != 70 {
		t.Fatalf("unexpected rebuilt balance: %d", personal)
	}
}

func TestIssueCodeGeneratesToken(t *testing.T) {
	svc, _, _, _ := newTestBank(t)
	row, err := svc.IssueCode(context.Background(), "", "VOYAGER", codes.Package{SignOnBonus: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(row.Code) != len("VOYAGER-")+8 || row.Code[:8] != "VOYAGER-" {
		t.Fatalf("unexpected generated code: %q", row.Code)
	}
	if row.Status != codes.StatusNew {
		t.Fatalf("unexpected status: %q", row.Status)
	}
}

func TestResetBankAndCodes(t *testing.T) {
	svc, _, _, _ := newTestBank(t)
	ctx := context.Background()
	_, _ = svc.Deposit(ctx, "user-1", 500, "")
	_, _ = svc.IssueCode(ctx, "DEP-50-AB12CD", "", codes.Package{})

	if err := svc.ResetBank(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if personal, global := svc.Balance("user-1"); personal != 0 || global != 0 {
		t.Fatalf("bank not reset: %d / %d", personal, global)
	}
	if err := svc.ResetCodes(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.ListCodes()) != 0 {
		t.Fatal("codes not reset")
	}
}
