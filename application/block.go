package application

import (
	"encoding/json"

	"github.com/0xAtelerix/sdk/gosdk/apptypes"
)

var _ apptypes.AppchainBlock = &Block{}

// Block is the appchain block header. Ledger state lives in the db, the
// block only commits to it through Root.
type Block struct {
	BlockNum uint64   `json:"number"`
	Root     [32]byte `json:"root"`
	Parent   [32]byte `json:"parent"`
}

func (b *Block) Number() uint64 {
	return b.BlockNum
}

func (b *Block) Hash() [32]byte {
	return b.Root
}

func (b *Block) StateRoot() [32]byte {
	return b.Root
}

func (b *Block) Bytes() []byte {
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}

	return data
}

func BlockConstructor(
	blockNumber uint64,
	stateRoot [32]byte,
	previousBlockHash [32]byte,
	_ apptypes.Batch[Transaction[Receipt], Receipt],
) *Block {
	return &Block{
		BlockNum: blockNumber,
		Root:     stateRoot,
		Parent:   previousBlockHash,
	}
}
