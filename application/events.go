package application

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/kv"
)

type EventKind string

const (
	KindTransfer EventKind = "Transfer"
	KindApproval EventKind = "Approval"
)

// Topics match the ERC-20 log signatures so indexers can treat ledger
// events like EVM logs.
var (
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	ApprovalTopic = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
)

// Event is either a TransferEvent or an ApprovalEvent.
type Event interface {
	Kind() EventKind
	Record() EventRecord
	isEvent()
}

type TransferEvent struct {
	From   AccountID
	To     AccountID
	Amount *uint256.Int
}

func (TransferEvent) Kind() EventKind { return KindTransfer }
func (TransferEvent) isEvent()        {}

func (e TransferEvent) Record() EventRecord {
	return EventRecord{
		Kind:   KindTransfer,
		Topic:  TransferTopic.Hex(),
		A:      e.From,
		B:      e.To,
		Amount: e.Amount.Dec(),
	}
}

// ApprovalEvent carries the allowance after the change, not the delta.
type ApprovalEvent struct {
	Owner     AccountID
	Spender   AccountID
	Allowance *uint256.Int
}

func (ApprovalEvent) Kind() EventKind { return KindApproval }
func (ApprovalEvent) isEvent()        {}

func (e ApprovalEvent) Record() EventRecord {
	return EventRecord{
		Kind:   KindApproval,
		Topic:  ApprovalTopic.Hex(),
		A:      e.Owner,
		B:      e.Spender,
		Amount: e.Allowance.Dec(),
	}
}

// EventRecord is the flattened, persisted form of an Event.
// A/B are from/to for transfers and owner/spender for approvals.
type EventRecord struct {
	Seq    uint64    `cbor:"1,keyasint" json:"seq"`
	Kind   EventKind `cbor:"2,keyasint" json:"kind"`
	Topic  string    `cbor:"3,keyasint" json:"topic"`
	A      AccountID `cbor:"4,keyasint" json:"a"`
	B      AccountID `cbor:"5,keyasint" json:"b"`
	Amount string    `cbor:"6,keyasint" json:"amount"`
	TxHash [32]byte  `cbor:"7,keyasint" json:"txHash"`
}

// EventSink receives events in emission order.
type EventSink interface {
	Emit(ev Event) error
}

// EventBuffer collects events in memory.
type EventBuffer struct {
	events []Event
}

func (b *EventBuffer) Emit(ev Event) error {
	b.events = append(b.events, ev)

	return nil
}

func (b *EventBuffer) Events() []Event {
	return b.events
}

func (b *EventBuffer) Records() []EventRecord {
	out := make([]EventRecord, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Record())
	}

	return out
}

// MultiSink fans an event out to every sink, stopping at the first error.
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) error {
	for _, s := range m {
		if err := s.Emit(ev); err != nil {
			return err
		}
	}

	return nil
}

// KVEventSink appends events to EventsBucket under a monotonically
// increasing sequence number.
type KVEventSink struct {
	store  *KVStore
	txHash [32]byte
}

func NewKVEventSink(store *KVStore, txHash [32]byte) *KVEventSink {
	return &KVEventSink{store: store, txHash: txHash}
}

func (s *KVEventSink) Emit(ev Event) error {
	seq, err := s.store.nextEventSeq()
	if err != nil {
		return err
	}

	rec := ev.Record()
	rec.Seq = seq
	rec.TxHash = s.txHash

	data, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := s.store.tx.Put(EventsBucket, eventKey(seq), data); err != nil {
		return fmt.Errorf("put event: %w", err)
	}

	return nil
}

func eventKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)

	return k[:]
}

// GetEvent reads a single event record by sequence number.
func GetEvent(tx kv.Getter, seq uint64) (*EventRecord, error) {
	data, err := tx.GetOne(EventsBucket, eventKey(seq))
	if err != nil {
		return nil, fmt.Errorf("db get: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("event %d not found", seq)
	}

	var rec EventRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	return &rec, nil
}

// ListEvents returns up to limit records starting at fromSeq. A limit of
// zero means no limit.
func ListEvents(ctx context.Context, tx kv.Tx, fromSeq uint64, limit int) ([]EventRecord, error) {
	cur, err := tx.Cursor(EventsBucket)
	if err != nil {
		return nil, fmt.Errorf("cursor open: %w", err)
	}
	defer cur.Close()

	var out []EventRecord

	for k, v, err := cur.Seek(eventKey(fromSeq)); err != nil || k != nil; k, v, err = cur.Next() {
		if err != nil {
			return nil, fmt.Errorf("cursor next: %w", err)
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var rec EventRecord
		if err := cbor.Unmarshal(v, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal event %x: %w", k, err)
		}

		out = append(out, rec)

		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}
