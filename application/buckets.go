package application

import "github.com/ledgerwatch/erigon-lib/kv"

const (
	TokenBucket      = "erc20token"      // meta key -> value
	BalancesBucket   = "erc20balances"   // account -> uint256 bytes
	AllowancesBucket = "erc20allowances" // owner+spender -> uint256 bytes
	EventsBucket     = "erc20events"     // seq -> cbor event record
)

func Tables() kv.TableCfg {
	return kv.TableCfg{
		TokenBucket:      {},
		BalancesBucket:   {},
		AllowancesBucket: {},
		EventsBucket:     {},
	}
}
