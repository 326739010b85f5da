package application

import (
	"github.com/holiman/uint256"
)

// Ledger applies token operations against a Store. Every operation checks
// all preconditions and does all arithmetic before its first write, so a
// failed operation leaves the store untouched and emits nothing.
type Ledger struct {
	store Store
	sink  EventSink
}

func NewLedger(store Store, sink EventSink) *Ledger {
	return &Ledger{
		store: store,
		sink:  sink,
	}
}

func checkedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticOverflow
	}

	return z, nil
}

func checkedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrArithmeticOverflow
	}

	return z, nil
}

// Init mints the configured total supply to the owner. It succeeds once.
func (l *Ledger) Init(caller AccountID) error {
	initialized, err := l.store.Initialized()
	if err != nil {
		return err
	}

	if initialized {
		return ErrAlreadyInitialized
	}

	cfg, err := l.store.Config()
	if err != nil {
		return err
	}

	if cfg.Owner != caller {
		return ErrNotOwner
	}

	supply := cfg.TotalSupply
	if supply == nil {
		supply = uint256.NewInt(0)
	}

	if err := l.store.SetBalance(caller, supply); err != nil {
		return err
	}

	return l.store.SetInitialized()
}

func (l *Ledger) BalanceOf(account AccountID) (*uint256.Int, error) {
	return l.store.Balance(account)
}

func (l *Ledger) Allowance(owner, spender AccountID) (*uint256.Int, error) {
	return l.store.Allowance(owner, spender)
}
