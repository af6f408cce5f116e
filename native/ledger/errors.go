package ledger

import "errors"

var (
	ErrInsufficientBalance    = errors.New("ledger: insufficient balance")
	ErrInsufficientLocked     = errors.New("ledger: insufficient locked balance")
	ErrDailyWalletCapExceeded = errors.New("ledger: daily wallet cap exceeded")
	ErrInvalidAmount          = errors.New("ledger: amount must be positive")
)
