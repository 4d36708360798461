package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"starlight/internal/codes"
	"starlight/internal/ledger"
	"starlight/internal/storage"
	"starlight/internal/websocket"

	"github.com/google/uuid"
)

const (
	bankKey  = "careon_bank_v2"
	codesKey = "codes_ledger"
)

var (
	ErrStorageUnavailable = errors.New("storage unavailable, operation not committed")
	ErrAmountTooLarge     = errors.New("deposit amount exceeds the redemption ceiling")
)

// Clock supplies the instant and the UTC calendar date (YYYY-MM-DD).
type Clock interface {
	Now() time.Time
	Today() string
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
func (SystemClock) Today() string  { return time.Now().UTC().Format("2006-01-02") }

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

type BankService struct {
	mu        sync.Mutex
	store     storage.Storage
	clock     Clock
	hub       BalanceHub
	redeemMax int64

	bank     *ledger.Bank
	registry *codes.Registry
}

func NewBankService(store storage.Storage, clock Clock, hub BalanceHub, redeemMax int64) (*BankService, error) {
	s := &BankService{
		store:     store,
		clock:     clock,
		hub:       hub,
		redeemMax: redeemMax,
	}
	if err := s.load(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BankService) load(ctx context.Context) error {
	now := s.clock.Now()

	bank := ledger.NewBank(now)
	recovered, err := loadSnapshot(ctx, s.store, bankKey, bank)
	if err != nil {
		return err
	}
	if recovered {
		if err := s.persist(ctx, bankKey, bank); err != nil {
			return err
		}
	}

	registry := codes.NewRegistry(now)
	recovered, err = loadSnapshot(ctx, s.store, codesKey, registry)
	if err != nil {
		return err
	}
	if recovered {
		if err := s.persist(ctx, codesKey, registry); err != nil {
			return err
		}
	}

	s.bank = bank
	s.registry = registry
	return nil
}

func loadSnapshot(ctx context.Context, store storage.Storage, key string, target any) (bool, error) {
	data, err := store.Read(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("snapshot %s missing, starting from defaults", key)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if len(data) == 0 {
		log.Printf("snapshot %s empty, starting from defaults", key)
		return true, nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		log.Printf("snapshot %s corrupt (%v), starting from defaults", key, err)
		return true, nil
	}
	return false, nil
}

func (s *BankService) persist(ctx context.Context, key string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if err := s.store.Write(ctx, key, data); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *BankService) broadcast(userID, kind string, bank *ledger.Bank) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastBalance(userID, websocket.BalanceUpdate{
		UserID:          userID,
		PersonalBalance: bank.UserBalance(userID),
		GlobalBalance:   bank.Balance,
		Kind:            kind,
	})
}

func (s *BankService) mutateBank(ctx context.Context, fn func(bank *ledger.Bank) error) (*ledger.Bank, error) {
	staged := s.bank.Clone()
	if err := fn(staged); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, bankKey, staged); err != nil {
		return nil, err
	}
	s.bank = staged
	return staged, nil
}

func (s *BankService) Deposit(ctx context.Context, userID string, amount int64, description string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tx ledger.Transaction
	bank, err := s.mutateBank(ctx, func(bank *ledger.Bank) error {
		var err error
		tx, err = bank.Deposit(s.clock.Now(), userID, amount, description)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.broadcast(userID, ledger.KindDeposit, bank)
	return tx, nil
}

func (s *BankService) Spend(ctx context.Context, userID string, amount int64, description string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tx ledger.Transaction
	bank, err := s.mutateBank(ctx, func(bank *ledger.Bank) error {
		var err error
		tx, err = bank.Spend(s.clock.Now(), userID, amount, description)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.broadcast(userID, ledger.KindSpend, bank)
	return tx, nil
}

func (s *BankService) Award(ctx context.Context, userID string, amount int64, description string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tx ledger.Transaction
	bank, err := s.mutateBank(ctx, func(bank *ledger.Bank) error {
		var err error
		tx, err = bank.Award(s.clock.Now(), userID, amount, description)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.broadcast(userID, ledger.KindAward, bank)
	return tx, nil
}

func (s *BankService) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64, description string) (ledger.Transaction, ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out, in ledger.Transaction
	bank, err := s.mutateBank(ctx, func(bank *ledger.Bank) error {
		var err error
		out, in, err = bank.Transfer(s.clock.Now(), fromUserID, toUserID, amount, description)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, ledger.Transaction{}, err
	}
	s.broadcast(fromUserID, ledger.KindSpend, bank)
	s.broadcast(toUserID, ledger.KindDeposit, bank)
	return out, in, nil
}

func (s *BankService) DailyBonus(ctx context.Context, userID string) (ledger.Transaction, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.clock.Today()
	if s.bank.LastBonusByUser[userID] == today {
		return ledger.Transaction{}, false, nil
	}
	var tx ledger.Transaction
	bank, err := s.mutateBank(ctx, func(bank *ledger.Bank) error {
		var err error
		tx, _, err = bank.ApplyDailyBonus(s.clock.Now(), userID, today)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, false, err
	}
	s.broadcast(userID, ledger.KindBonus, bank)
	return tx, true, nil
}

func (s *BankService) Redeem(ctx context.Context, codeText, userID string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, normalized, err := codes.ParseDepositCode(codeText)
	if err != nil {
		return ledger.Transaction{}, err
	}
	row, ok := s.registry.Find(normalized)
	if !ok {
		return ledger.Transaction{}, codes.ErrUnknownCode
	}
	if row.Status != codes.StatusNew || s.bank.CodeUsed(normalized) {
		return ledger.Transaction{}, codes.ErrAlreadyUsed
	}
	if amount > s.redeemMax {
		return ledger.Transaction{}, ErrAmountTooLarge
	}

	now := s.clock.Now()
	stagedBank := s.bank.Clone()
	stagedRegistry := s.registry.Clone()

	tx, err := stagedBank.RedeemCredit(now, userID, amount, "Deposit code redeemed: "+normalized)
	if err != nil {
		return ledger.Transaction{}, err
	}
	stagedBank.MarkCodeUsed(normalized)
	if err := stagedRegistry.MarkUsed(now, normalized, userID); err != nil {
		return ledger.Transaction{}, err
	}

	if err := s.persist(ctx, bankKey, stagedBank); err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.persist(ctx, codesKey, stagedRegistry); err != nil {
		return ledger.Transaction{}, err
	}
	s.bank = stagedBank
	s.registry = stagedRegistry
	s.broadcast(userID, ledger.KindRedeemCode, stagedBank)
	return tx, nil
}

func (s *BankService) RedeemAccessCode(ctx context.Context, codeText, userID, description string, fallbackBonus int64) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.registry.Find(codeText)
	if !ok {
		return ledger.Transaction{}, codes.ErrUnknownCode
	}
	if row.Status != codes.StatusNew {
		return ledger.Transaction{}, codes.ErrAlreadyUsed
	}
	amount := row.Package.SignOnBonus
	if amount == 0 {
		amount = row.Package.AwardCareon
	}
	if amount == 0 {
		amount = fallbackBonus
	}

	now := s.clock.Now()
	stagedBank := s.bank.Clone()
	stagedRegistry := s.registry.Clone()

	tx, err := stagedBank.Deposit(now, userID, amount, description)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := stagedRegistry.MarkUsed(now, row.Code, userID); err != nil {
		return ledger.Transaction{}, err
	}

	if err := s.persist(ctx, bankKey, stagedBank); err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.persist(ctx, codesKey, stagedRegistry); err != nil {
		return ledger.Transaction{}, err
	}
	s.bank = stagedBank
	s.registry = stagedRegistry
	s.broadcast(userID, ledger.KindDeposit, stagedBank)
	return tx, nil
}

func (s *BankService) AccessCodeStatus(codeText string) (codes.Code, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Find(codeText)
}

func (s *BankService) Balance(userID string) (personal, global int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.UserBalance(userID), s.bank.Balance
}

func (s *BankService) Stats() ledger.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.Stats()
}

func (s *BankService) Recent(n int, userID string) []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.Recent(n, userID)
}

func (s *BankService) Reconcile(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rebuilt int
	_, err := s.mutateBank(ctx, func(bank *ledger.Bank) error {
		rebuilt = bank.RebuildBalancesFromTransactions(s.clock.Now())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rebuilt, nil
}

func (s *BankService) IssueCode(ctx context.Context, codeText, prefix string, pkg codes.Package) (codes.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if codeText == "" {
		if prefix == "" {
			prefix = "FRONTIER"
		}
		token := uuid.NewString()[:8]
		codeText = fmt.Sprintf("%s-%s", prefix, token)
	}
	staged := s.registry.Clone()
	row, err := staged.Issue(s.clock.Now(), codeText, pkg)
	if err != nil {
		return codes.Code{}, err
	}
	if err := s.persist(ctx, codesKey, staged); err != nil {
		return codes.Code{}, err
	}
	s.registry = staged
	return row, nil
}

func (s *BankService) ListCodes() []codes.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]codes.Code(nil), s.registry.Codes...)
}

func (s *BankService) ResetBank(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := ledger.NewBank(s.clock.Now())
	if err := s.persist(ctx, bankKey, fresh); err != nil {
		return err
	}
	s.bank = fresh
	return nil
}

func (s *BankService) ResetCodes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := codes.NewRegistry(s.clock.Now())
	if err := s.persist(ctx, codesKey, fresh); err != nil {
		return err
	}
	s.registry = fresh
	return nil
}

func (s *BankService) Snapshot() (*ledger.Bank, *codes.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank.Clone(), s.registry.Clone()
}
