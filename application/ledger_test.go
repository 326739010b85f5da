package application

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func maxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

func newTestLedger(t *testing.T, supply uint64) (*Ledger, *MemStore, *EventBuffer) {
	t.Helper()

	store := NewMemStore(TokenConfig{Owner: "owner", TotalSupply: u(supply), Name: "Test", Ticker: "TST"})
	events := &EventBuffer{}

	return NewLedger(store, events), store, events
}

func initializedLedger(t *testing.T, supply uint64) (*Ledger, *MemStore, *EventBuffer) {
	t.Helper()

	l, store, events := newTestLedger(t, supply)
	require.NoError(t, l.Init("owner"))

	return l, store, events
}

func requireBalance(t *testing.T, l *Ledger, account AccountID, want uint64) {
	t.Helper()

	got, err := l.BalanceOf(account)
	require.NoError(t, err)
	require.Equal(t, u(want), got, "balance of %s", account)
}

func requireAllowance(t *testing.T, l *Ledger, owner, spender AccountID, want uint64) {
	t.Helper()

	got, err := l.Allowance(owner, spender)
	require.NoError(t, err)
	require.Equal(t, u(want), got, "allowance %s -> %s", owner, spender)
}

func TestInit(t *testing.T) {
	l, store, events := newTestLedger(t, 1000)

	requireBalance(t, l, "owner", 0)

	require.NoError(t, l.Init("owner"))
	requireBalance(t, l, "owner", 1000)

	initialized, err := store.Initialized()
	require.NoError(t, err)
	require.True(t, initialized)

	require.ErrorIs(t, l.Init("owner"), ErrAlreadyInitialized)
	require.ErrorIs(t, l.Init("mallory"), ErrAlreadyInitialized)
	requireBalance(t, l, "owner", 1000)

	require.Empty(t, events.Events(), "minting is not a transfer")
}

func TestInit_NotOwner(t *testing.T) {
	l, store, _ := newTestLedger(t, 1000)

	require.ErrorIs(t, l.Init("mallory"), ErrNotOwner)

	initialized, err := store.Initialized()
	require.NoError(t, err)
	require.False(t, initialized)
	require.Empty(t, store.Accounts())

	require.NoError(t, l.Init("owner"))
}

func TestTransfer(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)

	require.NoError(t, l.Transfer("owner", "bob", u(300)))
	requireBalance(t, l, "owner", 700)
	requireBalance(t, l, "bob", 300)

	require.NoError(t, l.Transfer("bob", "carol", u(300)))
	requireBalance(t, l, "bob", 0)
	requireBalance(t, l, "carol", 300)

	require.Equal(t, []Event{
		TransferEvent{From: "owner", To: "bob", Amount: u(300)},
		TransferEvent{From: "bob", To: "carol", Amount: u(300)},
	}, events.Events())
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)
	require.NoError(t, l.Transfer("owner", "x", u(10)))

	require.ErrorIs(t, l.Transfer("x", "y", u(50)), ErrInsufficientBalance)
	requireBalance(t, l, "x", 10)
	requireBalance(t, l, "y", 0)
	require.Len(t, events.Events(), 1)
}

func TestTransfer_UnfundedSender(t *testing.T) {
	l, store, events := newTestLedger(t, 1000)

	// before init every account reads as zero and cannot send
	require.ErrorIs(t, l.Transfer("owner", "bob", u(0)), ErrAccountNotFound)
	require.ErrorIs(t, l.Transfer("bob", "owner", u(1)), ErrAccountNotFound)
	require.Empty(t, store.Accounts())
	require.Empty(t, events.Events())
}

func TestTransfer_DrainedAccountStillFunded(t *testing.T) {
	l, _, _ := initializedLedger(t, 100)
	require.NoError(t, l.Transfer("owner", "bob", u(100)))

	// a zero balance is still an existing entry
	require.ErrorIs(t, l.Transfer("owner", "bob", u(1)), ErrInsufficientBalance)
	require.NoError(t, l.Transfer("owner", "bob", u(0)))
}

func TestTransfer_ToSelf(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)

	require.NoError(t, l.Transfer("owner", "owner", u(400)))
	requireBalance(t, l, "owner", 1000)

	require.ErrorIs(t, l.Transfer("owner", "owner", u(1001)), ErrInsufficientBalance)
	require.Equal(t, []Event{TransferEvent{From: "owner", To: "owner", Amount: u(400)}}, events.Events())
}

func TestTransfer_RecipientOverflow(t *testing.T) {
	store := NewMemStore(TokenConfig{Owner: "owner", TotalSupply: maxUint256()})
	events := &EventBuffer{}
	l := NewLedger(store, events)
	require.NoError(t, l.Init("owner"))

	// only reachable when balances were seeded outside init
	require.NoError(t, store.SetBalance("whale", maxUint256()))

	require.ErrorIs(t, l.Transfer("owner", "whale", u(1)), ErrArithmeticOverflow)

	bal, err := l.BalanceOf("owner")
	require.NoError(t, err)
	require.Equal(t, maxUint256(), bal)
	require.Empty(t, events.Events())
}

func TestApprove_Accumulates(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)

	require.NoError(t, l.Approve("owner", "spender", u(30)))
	require.NoError(t, l.Approve("owner", "spender", u(30)))
	requireAllowance(t, l, "owner", "spender", 60)

	require.Equal(t, []Event{
		ApprovalEvent{Owner: "owner", Spender: "spender", Allowance: u(30)},
		ApprovalEvent{Owner: "owner", Spender: "spender", Allowance: u(60)},
	}, events.Events())
}

func TestApprove_UnfundedOwner(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)

	require.ErrorIs(t, l.Approve("nobody", "spender", u(5)), ErrAccountNotFound)
	requireAllowance(t, l, "nobody", "spender", 0)
	require.Empty(t, events.Events())
}

func TestApprove_Overflow(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)

	require.NoError(t, l.Approve("owner", "spender", maxUint256()))
	require.ErrorIs(t, l.Approve("owner", "spender", u(1)), ErrArithmeticOverflow)

	got, err := l.Allowance("owner", "spender")
	require.NoError(t, err)
	require.Equal(t, maxUint256(), got)
	require.Len(t, events.Events(), 1)
}

func TestApprove_DoesNotRequireBalanceCover(t *testing.T) {
	l, _, _ := initializedLedger(t, 10)

	require.NoError(t, l.Approve("owner", "spender", u(1_000_000)))
	requireAllowance(t, l, "owner", "spender", 1_000_000)
}

func TestTransferFrom(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)
	require.NoError(t, l.Transfer("owner", "a", u(100)))
	require.NoError(t, l.Approve("a", "b", u(50)))

	before := len(events.Events())

	require.NoError(t, l.TransferFrom("b", "a", "c", u(20)))
	requireAllowance(t, l, "a", "b", 30)
	requireBalance(t, l, "a", 80)
	requireBalance(t, l, "c", 20)
	requireBalance(t, l, "b", 0)

	require.Equal(t, []Event{
		ApprovalEvent{Owner: "a", Spender: "b", Allowance: u(30)},
		TransferEvent{From: "a", To: "c", Amount: u(20)},
	}, events.Events()[before:])
}

func TestTransferFrom_NoAllowance(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)

	require.ErrorIs(t, l.TransferFrom("s", "owner", "b", u(1)), ErrAllowanceNotFound)

	// an allowance granted to someone else does not count
	require.NoError(t, l.Approve("owner", "other", u(10)))
	require.ErrorIs(t, l.TransferFrom("s", "owner", "b", u(1)), ErrAllowanceNotFound)
	require.Len(t, events.Events(), 1)
}

func TestTransferFrom_InsufficientAllowance(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)
	require.NoError(t, l.Approve("owner", "s", u(10)))

	require.ErrorIs(t, l.TransferFrom("s", "owner", "b", u(11)), ErrInsufficientAllowance)
	requireAllowance(t, l, "owner", "s", 10)
	requireBalance(t, l, "owner", 1000)
	require.Len(t, events.Events(), 1)
}

func TestTransferFrom_ExhaustedAllowanceStillExists(t *testing.T) {
	l, _, _ := initializedLedger(t, 1000)
	require.NoError(t, l.Approve("owner", "s", u(10)))
	require.NoError(t, l.TransferFrom("s", "owner", "b", u(10)))

	require.ErrorIs(t, l.TransferFrom("s", "owner", "b", u(1)), ErrInsufficientAllowance)
}

func TestTransferFrom_TransferErrorsPropagateWithoutSideEffects(t *testing.T) {
	l, _, events := initializedLedger(t, 1000)
	require.NoError(t, l.Transfer("owner", "a", u(5)))
	require.NoError(t, l.Approve("a", "s", u(100)))

	before := len(events.Events())

	require.ErrorIs(t, l.TransferFrom("s", "a", "c", u(6)), ErrInsufficientBalance)
	requireAllowance(t, l, "a", "s", 100)
	requireBalance(t, l, "a", 5)
	requireBalance(t, l, "c", 0)
	require.Len(t, events.Events(), before)
}

func TestTransferFrom_SpenderIsRecipient(t *testing.T) {
	l, _, _ := initializedLedger(t, 1000)
	require.NoError(t, l.Approve("owner", "s", u(100)))

	require.NoError(t, l.TransferFrom("s", "owner", "s", u(40)))
	requireBalance(t, l, "s", 40)
	requireBalance(t, l, "owner", 960)
	requireAllowance(t, l, "owner", "s", 60)
}
