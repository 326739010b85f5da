package application

import (
	"github.com/holiman/uint256"
)

// pendingTransfer holds a validated transfer whose writes have not been
// applied yet.
type pendingTransfer struct {
	from, to       AccountID
	amount         *uint256.Int
	fromBal, toBal *uint256.Int
}

func (l *Ledger) prepareTransfer(from, to AccountID, amount *uint256.Int) (*pendingTransfer, error) {
	funded, err := l.store.HasBalance(from)
	if err != nil {
		return nil, err
	}

	if !funded {
		return nil, ErrAccountNotFound
	}

	fromBal, err := l.store.Balance(from)
	if err != nil {
		return nil, err
	}

	if fromBal.Lt(amount) {
		return nil, ErrInsufficientBalance
	}

	newFrom, err := checkedSub(fromBal, amount)
	if err != nil {
		return nil, err
	}

	if from == to {
		return &pendingTransfer{from: from, to: to, amount: amount, fromBal: fromBal, toBal: fromBal}, nil
	}

	toBal, err := l.store.Balance(to)
	if err != nil {
		return nil, err
	}

	newTo, err := checkedAdd(toBal, amount)
	if err != nil {
		return nil, err
	}

	return &pendingTransfer{from: from, to: to, amount: amount, fromBal: newFrom, toBal: newTo}, nil
}

func (l *Ledger) applyTransfer(p *pendingTransfer) error {
	if err := l.store.SetBalance(p.from, p.fromBal); err != nil {
		return err
	}

	if p.from != p.to {
		if err := l.store.SetBalance(p.to, p.toBal); err != nil {
			return err
		}
	}

	return l.sink.Emit(TransferEvent{From: p.from, To: p.to, Amount: p.amount})
}

// Transfer moves amount from sender to recipient. A transfer to self is
// validated like any other and leaves the balance unchanged.
func (l *Ledger) Transfer(sender, recipient AccountID, amount *uint256.Int) error {
	p, err := l.prepareTransfer(sender, recipient, amount)
	if err != nil {
		return err
	}

	return l.applyTransfer(p)
}
