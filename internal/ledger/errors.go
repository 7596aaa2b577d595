package ledger

import "errors"

var (
	// ErrInvalidQuantity rejects a trade whose quantity is not a
	// finite positive number. Caller input error; never retried.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInsufficientBalance rejects a buy that would overdraw the
	// cash balance. The ledger is left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientHoldings rejects a sell of more units than held.
	// The ledger is left untouched.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrClosed rejects any trade on a ledger whose session has been
	// torn down.
	ErrClosed = errors.New("ledger closed")
)
