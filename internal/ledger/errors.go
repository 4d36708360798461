package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount    = errors.New("amount must be greater than 0")
	ErrSameUserTransfer = errors.New("cannot transfer to the same user")
)

type InsufficientBalanceError struct {
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient personal balance: have %d, tried to spend %d", e.Available, e.Requested)
}
