package application

import (
	"github.com/holiman/uint256"
)

// AccountID is the host-supplied account identity. The ledger only compares it.
type AccountID string

// TokenConfig is fixed at genesis and read-only afterwards.
type TokenConfig struct {
	Owner       AccountID    `json:"owner"`
	TotalSupply *uint256.Int `json:"totalSupply"`
	Name        string       `json:"name"`
	Ticker      string       `json:"ticker"`
}

// Store is the ledger's view of persistent state. Absent balances and
// allowances read as zero; the Has* queries tell "never written" apart
// from "explicitly zero".
type Store interface {
	Balance(account AccountID) (*uint256.Int, error)
	HasBalance(account AccountID) (bool, error)
	SetBalance(account AccountID, value *uint256.Int) error

	Allowance(owner, spender AccountID) (*uint256.Int, error)
	HasAllowance(owner, spender AccountID) (bool, error)
	SetAllowance(owner, spender AccountID, value *uint256.Int) error

	Initialized() (bool, error)
	SetInitialized() error
	Config() (TokenConfig, error)
}

type allowanceKey struct {
	owner, spender AccountID
}

// MemStore keeps ledger state in maps. It is meant for tests and tools that
// run the ledger without a database.
type MemStore struct {
	cfg         TokenConfig
	initialized bool
	balances    map[AccountID]*uint256.Int
	allowances  map[allowanceKey]*uint256.Int
}

var _ Store = &MemStore{}

func NewMemStore(cfg TokenConfig) *MemStore {
	return &MemStore{
		cfg:        cfg,
		balances:   make(map[AccountID]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

func (m *MemStore) Balance(account AccountID) (*uint256.Int, error) {
	if v, ok := m.balances[account]; ok {
		return new(uint256.Int).Set(v), nil
	}

	return uint256.NewInt(0), nil
}

func (m *MemStore) HasBalance(account AccountID) (bool, error) {
	_, ok := m.balances[account]

	return ok, nil
}

func (m *MemStore) SetBalance(account AccountID, value *uint256.Int) error {
	m.balances[account] = new(uint256.Int).Set(value)

	return nil
}

func (m *MemStore) Allowance(owner, spender AccountID) (*uint256.Int, error) {
	if v, ok := m.allowances[allowanceKey{owner, spender}]; ok {
		return new(uint256.Int).Set(v), nil
	}

	return uint256.NewInt(0), nil
}

func (m *MemStore) HasAllowance(owner, spender AccountID) (bool, error) {
	_, ok := m.allowances[allowanceKey{owner, spender}]

	return ok, nil
}

func (m *MemStore) SetAllowance(owner, spender AccountID, value *uint256.Int) error {
	m.allowances[allowanceKey{owner, spender}] = new(uint256.Int).Set(value)

	return nil
}

func (m *MemStore) Initialized() (bool, error) {
	return m.initialized, nil
}

func (m *MemStore) SetInitialized() error {
	m.initialized = true

	return nil
}

func (m *MemStore) Config() (TokenConfig, error) {
	return m.cfg, nil
}

// Accounts lists every account with a balance entry.
func (m *MemStore) Accounts() []AccountID {
	out := make([]AccountID, 0, len(m.balances))
	for a := range m.balances {
		out = append(out, a)
	}

	return out
}
