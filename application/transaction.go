package application

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/0xAtelerix/sdk/gosdk/apptypes"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/rs/zerolog/log"
)

type Method string

const (
	MethodInit         Method = "init"
	MethodTransfer     Method = "transfer"
	MethodApprove      Method = "approve"
	MethodTransferFrom Method = "transferFrom"
)

// Transaction is a signed ledger call. Sender is the caller identity the
// host has authenticated.
type Transaction[R Receipt] struct {
	Method  Method       `json:"method"`
	Sender  AccountID    `json:"sender"`
	To      AccountID    `json:"to,omitempty"`
	From    AccountID    `json:"from,omitempty"`
	Spender AccountID    `json:"spender,omitempty"`
	Amount  *uint256.Int `json:"amount,omitempty"`
	TxHash  string       `json:"hash"`
}

func (t *Transaction[R]) Unmarshal(b []byte) error {
	return json.Unmarshal(b, t)
}

func (t Transaction[R]) Marshal() ([]byte, error) {
	return json.Marshal(t)
}

// Hash decodes TxHash. Only hashes accepted by validate are meaningful.
func (t Transaction[R]) Hash() [32]byte {
	var h [32]byte

	hashBytes, err := decodeTxHash(t.TxHash)
	if err != nil {
		return h
	}

	copy(h[:], hashBytes)

	return h
}

func decodeTxHash(s string) ([]byte, error) {
	hashBytes, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	if len(hashBytes) != 32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidHash, len(hashBytes))
	}

	return hashBytes, nil
}

func (t *Transaction[R]) validate() error {
	if _, err := decodeTxHash(t.TxHash); err != nil {
		return err
	}

	if t.Sender == "" {
		return fmt.Errorf("sender: %w", ErrMissingParameters)
	}

	switch t.Method {
	case MethodInit:
		return nil
	case MethodTransfer:
		if t.To == "" || t.Amount == nil {
			return fmt.Errorf("transfer needs to and amount: %w", ErrMissingParameters)
		}
	case MethodApprove:
		if t.Spender == "" || t.Amount == nil {
			return fmt.Errorf("approve needs spender and amount: %w", ErrMissingParameters)
		}
	case MethodTransferFrom:
		if t.From == "" || t.To == "" || t.Amount == nil {
			return fmt.Errorf("transferFrom needs from, to and amount: %w", ErrMissingParameters)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, t.Method)
	}

	return nil
}

// touched lists the accounts whose balances the call may change.
func (t *Transaction[R]) touched() []AccountID {
	switch t.Method {
	case MethodInit:
		return []AccountID{t.Sender}
	case MethodTransfer:
		return []AccountID{t.Sender, t.To}
	case MethodApprove:
		return []AccountID{t.Sender}
	case MethodTransferFrom:
		return []AccountID{t.From, t.To}
	}

	return nil
}

func (t *Transaction[R]) apply(l *Ledger) error {
	switch t.Method {
	case MethodInit:
		return l.Init(t.Sender)
	case MethodTransfer:
		return l.Transfer(t.Sender, t.To, t.Amount)
	case MethodApprove:
		return l.Approve(t.Sender, t.Spender, t.Amount)
	case MethodTransferFrom:
		return l.TransferFrom(t.Sender, t.From, t.To, t.Amount)
	}

	return ErrUnknownMethod
}

// Process applies the call inside the host's db transaction. Ledger errors
// become failed receipts; storage errors are returned so the host rolls the
// db transaction back.
func (t Transaction[R]) Process(
	dbTx kv.RwTx,
) (res R, txs []apptypes.ExternalTransaction, err error) {
	if err := t.validate(); err != nil {
		return t.failedReceipt(err), nil, nil
	}

	store := NewKVStore(dbTx)
	emitted := &EventBuffer{}
	ledger := NewLedger(store, MultiSink{NewKVEventSink(store, t.Hash()), emitted})

	if err := t.apply(ledger); err != nil {
		var ledgerErr Error
		if errors.As(err, &ledgerErr) {
			log.Debug().
				Str("method", string(t.Method)).
				Str("sender", string(t.Sender)).
				Err(err).
				Msg("Ledger call rejected")

			return t.failedReceipt(err), nil, nil
		}

		return res, nil, fmt.Errorf("%s: %w", t.Method, err)
	}

	balances := make(map[AccountID]*uint256.Int)

	for _, a := range t.touched() {
		bal, err := store.Balance(a)
		if err != nil {
			return res, nil, err
		}

		balances[a] = bal
	}

	receipt := t.successReceipt()
	receipt.Events = emitted.Records()
	receipt.Balances = balances

	return R(receipt), []apptypes.ExternalTransaction{}, nil
}

func (t *Transaction[R]) failedReceipt(err error) R {
	return R{
		TxnHash:      t.Hash(),
		ErrorMessage: err.Error(),
		TxStatus:     apptypes.ReceiptFailed,
		Method:       t.Method,
		Sender:       t.Sender,
	}
}

func (t *Transaction[R]) successReceipt() Receipt {
	return Receipt{
		TxnHash:  t.Hash(),
		TxStatus: apptypes.ReceiptConfirmed,
		Method:   t.Method,
		Sender:   t.Sender,
	}
}
