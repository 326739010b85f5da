package application

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/kv"
)

var (
	initializedKey = []byte("initialized")
	ownerKey       = []byte("owner")
	totalSupplyKey = []byte("total_supply")
	nameKey        = []byte("name")
	tickerKey      = []byte("ticker")
	genesisMarker  = []byte("genesis_initialized")
	eventSeqKey    = []byte("event_seq")
)

// AllowanceKey is uvarint(len(owner)) || owner || spender, so that no two
// (owner, spender) pairs share a key.
func AllowanceKey(owner, spender AccountID) []byte {
	key := make([]byte, 0, binary.MaxVarintLen64+len(owner)+len(spender))
	key = binary.AppendUvarint(key, uint64(len(owner)))
	key = append(key, owner...)

	return append(key, spender...)
}

func BalanceKey(account AccountID) []byte {
	return []byte(account)
}

// KVReader reads ledger state from a read-only db transaction.
type KVReader struct {
	tx kv.Getter
}

func NewKVReader(tx kv.Getter) *KVReader {
	return &KVReader{tx: tx}
}

func (r *KVReader) getUint(table string, key []byte) (*uint256.Int, error) {
	data, err := r.tx.GetOne(table, key)
	if err != nil {
		return nil, fmt.Errorf("db get %s: %w", table, err)
	}

	return new(uint256.Int).SetBytes(data), nil
}

func (r *KVReader) has(table string, key []byte) (bool, error) {
	ok, err := r.tx.Has(table, key)
	if err != nil {
		return false, fmt.Errorf("db has %s: %w", table, err)
	}

	return ok, nil
}

func (r *KVReader) Balance(account AccountID) (*uint256.Int, error) {
	return r.getUint(BalancesBucket, BalanceKey(account))
}

func (r *KVReader) HasBalance(account AccountID) (bool, error) {
	return r.has(BalancesBucket, BalanceKey(account))
}

func (r *KVReader) Allowance(owner, spender AccountID) (*uint256.Int, error) {
	return r.getUint(AllowancesBucket, AllowanceKey(owner, spender))
}

func (r *KVReader) HasAllowance(owner, spender AccountID) (bool, error) {
	return r.has(AllowancesBucket, AllowanceKey(owner, spender))
}

func (r *KVReader) Initialized() (bool, error) {
	data, err := r.tx.GetOne(TokenBucket, initializedKey)
	if err != nil {
		return false, fmt.Errorf("db get initialized: %w", err)
	}

	return len(data) > 0 && data[0] == 1, nil
}

func (r *KVReader) Config() (TokenConfig, error) {
	ok, err := r.has(TokenBucket, ownerKey)
	if err != nil {
		return TokenConfig{}, err
	}

	if !ok {
		return TokenConfig{}, ErrConfigNotFound
	}

	var cfg TokenConfig

	owner, err := r.tx.GetOne(TokenBucket, ownerKey)
	if err != nil {
		return TokenConfig{}, fmt.Errorf("db get owner: %w", err)
	}

	cfg.Owner = AccountID(owner)

	cfg.TotalSupply, err = r.getUint(TokenBucket, totalSupplyKey)
	if err != nil {
		return TokenConfig{}, err
	}

	name, err := r.tx.GetOne(TokenBucket, nameKey)
	if err != nil {
		return TokenConfig{}, fmt.Errorf("db get name: %w", err)
	}

	ticker, err := r.tx.GetOne(TokenBucket, tickerKey)
	if err != nil {
		return TokenConfig{}, fmt.Errorf("db get ticker: %w", err)
	}

	cfg.Name = string(name)
	cfg.Ticker = string(ticker)

	return cfg, nil
}

// KVStore is the Store bound to the host's read-write transaction. Writes
// become durable when the host commits.
type KVStore struct {
	*KVReader
	tx kv.RwTx
}

var _ Store = &KVStore{}

func NewKVStore(tx kv.RwTx) *KVStore {
	return &KVStore{
		KVReader: NewKVReader(tx),
		tx:       tx,
	}
}

func (s *KVStore) putUint(table string, key []byte, value *uint256.Int) error {
	b := value.Bytes32()
	if err := s.tx.Put(table, key, b[:]); err != nil {
		return fmt.Errorf("db put %s: %w", table, err)
	}

	return nil
}

func (s *KVStore) SetBalance(account AccountID, value *uint256.Int) error {
	return s.putUint(BalancesBucket, BalanceKey(account), value)
}

func (s *KVStore) SetAllowance(owner, spender AccountID, value *uint256.Int) error {
	return s.putUint(AllowancesBucket, AllowanceKey(owner, spender), value)
}

func (s *KVStore) SetInitialized() error {
	if err := s.tx.Put(TokenBucket, initializedKey, []byte{1}); err != nil {
		return fmt.Errorf("db put initialized: %w", err)
	}

	return nil
}

// PutConfig writes the genesis token configuration.
func (s *KVStore) PutConfig(cfg TokenConfig) error {
	supply := cfg.TotalSupply
	if supply == nil {
		supply = uint256.NewInt(0)
	}

	if err := s.tx.Put(TokenBucket, ownerKey, []byte(cfg.Owner)); err != nil {
		return fmt.Errorf("db put owner: %w", err)
	}

	if err := s.putUint(TokenBucket, totalSupplyKey, supply); err != nil {
		return err
	}

	if err := s.tx.Put(TokenBucket, nameKey, []byte(cfg.Name)); err != nil {
		return fmt.Errorf("db put name: %w", err)
	}

	if err := s.tx.Put(TokenBucket, tickerKey, []byte(cfg.Ticker)); err != nil {
		return fmt.Errorf("db put ticker: %w", err)
	}

	return nil
}

// nextEventSeq returns the next event sequence number and advances the counter.
func (s *KVStore) nextEventSeq() (uint64, error) {
	data, err := s.tx.GetOne(TokenBucket, eventSeqKey)
	if err != nil {
		return 0, fmt.Errorf("db get event seq: %w", err)
	}

	var seq uint64
	if len(data) == 8 {
		seq = binary.BigEndian.Uint64(data)
	}

	var next [8]byte
	binary.BigEndian.PutUint64(next[:], seq+1)

	if err := s.tx.Put(TokenBucket, eventSeqKey, next[:]); err != nil {
		return 0, fmt.Errorf("db put event seq: %w", err)
	}

	return seq, nil
}
