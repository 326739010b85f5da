package application

import (
	"github.com/holiman/uint256"
)

// Approve raises the spender's allowance over owner's tokens by amount.
// It adds to the existing allowance instead of replacing it.
func (l *Ledger) Approve(owner, spender AccountID, amount *uint256.Int) error {
	funded, err := l.store.HasBalance(owner)
	if err != nil {
		return err
	}

	if !funded {
		return ErrAccountNotFound
	}

	current, err := l.store.Allowance(owner, spender)
	if err != nil {
		return err
	}

	updated, err := checkedAdd(current, amount)
	if err != nil {
		return err
	}

	if err := l.store.SetAllowance(owner, spender, updated); err != nil {
		return err
	}

	return l.sink.Emit(ApprovalEvent{Owner: owner, Spender: spender, Allowance: updated})
}

// TransferFrom lets spender move amount out of from's balance to to,
// consuming the allowance from granted to spender. Errors of the underlying
// transfer are returned unchanged.
func (l *Ledger) TransferFrom(spender, from, to AccountID, amount *uint256.Int) error {
	exists, err := l.store.HasAllowance(from, spender)
	if err != nil {
		return err
	}

	if !exists {
		return ErrAllowanceNotFound
	}

	allowance, err := l.store.Allowance(from, spender)
	if err != nil {
		return err
	}

	if allowance.Lt(amount) {
		return ErrInsufficientAllowance
	}

	updated, err := checkedSub(allowance, amount)
	if err != nil {
		return err
	}

	p, err := l.prepareTransfer(from, to, amount)
	if err != nil {
		return err
	}

	if err := l.store.SetAllowance(from, spender, updated); err != nil {
		return err
	}

	if err := l.sink.Emit(ApprovalEvent{Owner: from, Spender: spender, Allowance: updated}); err != nil {
		return err
	}

	return l.applyTransfer(p)
}
