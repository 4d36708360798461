package ledger

import (
	"fmt"
	"time"
)

const (
	KindDeposit    = "deposit"
	KindSpend      = "spend"
	KindAward      = "award"
	KindBonus      = "bonus"
	KindRedeemCode = "redeem_code"
)

const DailyBonusAmount = 10

type Transaction struct {
	TS          string `json:"ts"`
	UserID      string `json:"account_id"`
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type Meta struct {
	Version   string `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

type Bank struct {
	Balance          int64             `json:"balance"`
	NetworkFund      int64             `json:"sld_network_fund"`
	TotalEarned      int64             `json:"total_earned"`
	TotalSpent       int64             `json:"total_spent"`
	BalancesByUser   map[string]int64  `json:"balances_by_user"`
	LastBonusByUser  map[string]string `json:"last_bonus_by_user"`
	UsedDepositCodes []string          `json:"used_deposit_codes"`
	Transactions     []Transaction     `json:"transactions"`
	Meta             Meta              `json:"meta"`
}

func NewBank(now time.Time) *Bank {
	ts := now.UTC().Format(time.RFC3339)
	return &Bank{
		BalancesByUser:   map[string]int64{},
		LastBonusByUser:  map[string]string{},
		UsedDepositCodes: []string{},
		Transactions:     []Transaction{},
		Meta:             Meta{Version: "v3", UpdatedAt: ts},
	}
}

func (b *Bank) UserBalance(userID string) int64 {
	if b.BalancesByUser == nil {
		return 0
	}
	return b.BalancesByUser[userID]
}

func (b *Bank) setUserBalance(userID string, value int64) {
	if b.BalancesByUser == nil {
		b.BalancesByUser = map[string]int64{}
	}
	b.BalancesByUser[userID] = value
}

func (b *Bank) record(now time.Time, userID, kind string, amount int64, description string) Transaction {
	tx := Transaction{
		TS:          now.UTC().Format(time.RFC3339),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		Description: description,
	}
	b.Transactions = append([]Transaction{tx}, b.Transactions...)
	b.Meta.UpdatedAt = tx.TS
	return tx
}

func (b *Bank) Deposit(now time.Time, userID string, amount int64, description string) (Transaction, error) {
	return b.credit(now, userID, KindDeposit, amount, description)
}

func (b *Bank) Award(now time.Time, userID string, amount int64, description string) (Transaction, error) {
	return b.credit(now, userID, KindAward, amount, description)
}

func (b *Bank) RedeemCredit(now time.Time, userID string, amount int64, description string) (Transaction, error) {
	return b.credit(now, userID, KindRedeemCode, amount, description)
}

func (b *Bank) credit(now time.Time, userID, kind string, amount int64, description string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	b.Balance += amount
	b.setUserBalance(userID, b.UserBalance(userID)+amount)
	b.TotalEarned += amount
	return b.record(now, userID, kind, amount, description), nil
}

// Spend debits the personal balance and credits the shared pool.
func (b *Bank) Spend(now time.Time, userID string, amount int64, description string) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	personal := b.UserBalance(userID)
	if amount > personal {
		return Transaction{}, &InsufficientBalanceError{Available: personal, Requested: amount}
	}
	b.setUserBalance(userID, personal-amount)
	b.Balance += amount
	b.TotalSpent += amount
	return b.record(now, userID, KindSpend, amount, description), nil
}

// ApplyDailyBonus credits at most once per user per today (a UTC date).
func (b *Bank) ApplyDailyBonus(now time.Time, userID, today string) (Transaction, bool, error) {
	if b.LastBonusByUser == nil {
		b.LastBonusByUser = map[string]string{}
	}
	if b.LastBonusByUser[userID] == today {
		return Transaction{}, false, nil
	}
	tx, err := b.credit(now, userID, KindBonus, DailyBonusAmount, "Daily login bonus")
	if err != nil {
		return Transaction{}, false, err
	}
	b.LastBonusByUser[userID] = today
	return tx, true, nil
}

func (b *Bank) Transfer(now time.Time, fromUserID, toUserID string, amount int64, description string) (Transaction, Transaction, error) {
	if fromUserID == toUserID {
		return Transaction{}, Transaction{}, ErrSameUserTransfer
	}
	out, err := b.Spend(now, fromUserID, amount, fmt.Sprintf("Transfer to %s: %s", toUserID, description))
	if err != nil {
		return Transaction{}, Transaction{}, err
	}
	in, err := b.Deposit(now, toUserID, amount, fmt.Sprintf("Transfer from %s: %s", fromUserID, description))
	if err != nil {
		return Transaction{}, Transaction{}, err
	}
	return out, in, nil
}

func (b *Bank) MarkCodeUsed(code string) {
	b.UsedDepositCodes = append(b.UsedDepositCodes, code)
}

func (b *Bank) CodeUsed(code string) bool {
	for _, used := range b.UsedDepositCodes {
		if used == code {
			return true
		}
	}
	return false
}

func (b *Bank) Recent(n int, userID string) []Transaction {
	if n <= 0 {
		return []Transaction{}
	}
	out := make([]Transaction, 0, n)
	for _, tx := range b.Transactions {
		if userID != "" && tx.UserID != userID {
			continue
		}
		out = append(out, tx)
		if len(out) == n {
			break
		}
	}
	return out
}

type Stats struct {
	Balance     int64 `json:"balance"`
	NetworkFund int64 `json:"sld_network_fund"`
	TotalEarned int64 `json:"total_earned"`
	TotalSpent  int64 `json:"total_spent"`
	Net         int64 `json:"net"`
	Users       int   `json:"users"`
	CodesUsed   int   `json:"codes_used"`
}

func (b *Bank) Stats() Stats {
	return Stats{
		Balance:     b.Balance,
		NetworkFund: b.NetworkFund,
		TotalEarned: b.TotalEarned,
		TotalSpent:  b.TotalSpent,
		Net:         b.TotalEarned - b.TotalSpent,
		Users:       len(b.BalancesByUser),
		CodesUsed:   len(b.UsedDepositCodes),
	}
}

func (b *Bank) RebuildBalancesFromTransactions(now time.Time) int {
	balances := map[string]int64{}
	for i := len(b.Transactions) - 1; i >= 0; i-- {
		tx := b.Transactions[i]
		userID := tx.UserID
		if userID == "" {
			userID = "user-1"
		}
		switch tx.Kind {
		case KindDeposit, KindAward, KindBonus, KindRedeemCode:
			balances[userID] += tx.Amount
		case KindSpend:
			next := balances[userID] - tx.Amount
			if next < 0 {
				next = 0
			}
			balances[userID] = next
		}
	}
	b.BalancesByUser = balances
	b.Meta.UpdatedAt = now.UTC().Format(time.RFC3339)
	return len(balances)
}

func (b *Bank) Clone() *Bank {
	dup := *b
	dup.BalancesByUser = make(map[string]int64, len(b.BalancesByUser))
	for k, v := range b.BalancesByUser {
		dup.BalancesByUser[k] = v
	}
	dup.LastBonusByUser = make(map[string]string, len(b.LastBonusByUser))
	for k, v := range b.LastBonusByUser {
		dup.LastBonusByUser[k] = v
	}
	dup.UsedDepositCodes = append([]string(nil), b.UsedDepositCodes...)
	dup.Transactions = append([]Transaction(nil), b.Transactions...)
	return &dup
}
