package handlers

import (
	"context"

	"starlight/internal/codes"
	"starlight/internal/ledger"
	"starlight/internal/users"
)

type LedgerService interface {
	Deposit(ctx context.Context, userID string, amount int64, description string) (ledger.Transaction, error)
	Spend(ctx context.Context, userID string, amount int64, description string) (ledger.Transaction, error)
	Award(ctx context.Context, userID string, amount int64, description string) (ledger.Transaction, error)
	Transfer(ctx context.Context, fromUserID, toUserID string, amount int64, description string) (ledger.Transaction, ledger.Transaction, error)
	DailyBonus(ctx context.Context, userID string) (ledger.Transaction, bool, error)
	Redeem(ctx context.Context, codeText, userID string) (ledger.Transaction, error)
	RedeemAccessCode(ctx context.Context, codeText, userID, description string, fallbackBonus int64) (ledger.Transaction, error)
	AccessCodeStatus(codeText string) (codes.Code, bool)
	Balance(userID string) (personal, global int64)
	Stats() ledger.Stats
	Recent(n int, userID string) []ledger.Transaction
	Reconcile(ctx context.Context) (int, error)
	IssueCode(ctx context.Context, codeText, prefix string, pkg codes.Package) (codes.Code, error)
	ListCodes() []codes.Code
	ResetBank(ctx context.Context) error
	ResetCodes(ctx context.Context) error
	Snapshot() (*ledger.Bank, *codes.Registry)
}

type UserService interface {
	Create(ctx context.Context, displayName, vibe, title string) (users.User, error)
	Get(userID string) (users.User, bool)
	List() []users.User
	IsAdmin(userID string) bool
	HasStarplaceAccess(userID string) bool
	GrantStarplaceAccess(ctx context.Context, userID string) error
	UpdateStarplace(ctx context.Context, userID string, sp users.Starplace) error
	Reset(ctx context.Context) error
	Snapshot() *users.Directory
}
