package application

type Error string

func (e Error) Error() string {
	return string(e)
}

// Ledger failures. Returned to the caller as failed receipts, never persisted.
const (
	ErrAlreadyInitialized    = Error("already initialized")
	ErrNotOwner              = Error("only owner can initialize")
	ErrAccountNotFound       = Error("account does not own this token")
	ErrAllowanceNotFound     = Error("allowance does not exist")
	ErrInsufficientBalance   = Error("not enough balance")
	ErrInsufficientAllowance = Error("not enough allowance")
	ErrArithmeticOverflow    = Error("arithmetic overflow")
)

const (
	ErrDatabaseNil          = Error("database is nil")
	ErrMissingParameters    = Error("missing parameters")
	ErrDatabaseNotAvailable = Error("database not available")
	ErrUnknownMethod        = Error("unknown method")
	ErrInvalidHash          = Error("transaction hash must be 32 bytes of hex")
	ErrConfigNotFound       = Error("token config not found")
)
