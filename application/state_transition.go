package application

import (
	"context"

	"github.com/0xAtelerix/sdk/gosdk"
	"github.com/0xAtelerix/sdk/gosdk/apptypes"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/rs/zerolog/log"
)

var (
	_ gosdk.StateTransitionSimplified                               = &StateTransition{}
	_ gosdk.StateTransitionInterface[Transaction[Receipt], Receipt] = gosdk.BatchProcesser[Transaction[Receipt], Receipt]{}
)

type StateTransition struct {
	msa *gosdk.MultichainStateAccess
}

func NewStateTransition(msa *gosdk.MultichainStateAccess) *StateTransition {
	return &StateTransition{
		msa: msa,
	}
}

// ProcessBlock observes external chain blocks. External activity never
// changes ledger balances: the supply is minted only by init.
func (st *StateTransition) ProcessBlock(
	b apptypes.ExternalBlock,
	_ kv.RwTx,
) ([]apptypes.ExternalTransaction, error) {
	block, err := st.msa.EthBlock(context.Background(), b)
	if err != nil {
		return nil, err
	}

	receipts, err := st.msa.EthReceipts(context.Background(), b)
	if err != nil {
		return nil, err
	}

	log.Info().
		Uint64("chainID", b.ChainID).
		Uint64("n", block.Header.Number.Uint64()).
		Str("hash", block.Header.Hash().String()).
		Int("transactions", len(block.Body.Transactions)).
		Int("receipts", len(receipts)).
		Int("erc20_transfers", countTransferLogs(receipts)).
		Msg("External block")

	return nil, nil
}

// countTransferLogs counts ERC-20 Transfer logs in the external receipts.
func countTransferLogs(receipts []types.Receipt) int {
	n := 0

	for _, r := range receipts {
		for _, vlog := range r.Logs {
			if len(vlog.Topics) > 0 && vlog.Topics[0] == TransferTopic {
				n++
			}
		}
	}

	return n
}
