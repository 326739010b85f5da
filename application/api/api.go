package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/0xAtelerix/sdk/gosdk/rpc"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/kv"

	"github.com/0xAtelerix/erc20/application"
)

type CustomRPC struct {
	rpcServer *rpc.StandardRPCServer
	db        kv.RoDB
}

func NewCustomRPC(rpcServer *rpc.StandardRPCServer, db kv.RoDB) *CustomRPC {
	return &CustomRPC{
		rpcServer: rpcServer,
		db:        db,
	}
}

func (c *CustomRPC) AddRPCMethods() {
	c.rpcServer.AddMethod("getBalance", c.GetBalance)
	c.rpcServer.AddMethod("getAllowance", c.GetAllowance)
	c.rpcServer.AddMethod("getTokenInfo", c.GetTokenInfo)
	c.rpcServer.AddMethod("getLedgerEvents", c.GetLedgerEvents)
}

type GetBalanceRequest struct {
	Account application.AccountID `json:"account"`
}

type GetBalanceResponse struct {
	Account application.AccountID `json:"account"`
	Balance *uint256.Int          `json:"balance"`
	Funded  bool                  `json:"funded"`
}

type GetAllowanceRequest struct {
	Owner   application.AccountID `json:"owner"`
	Spender application.AccountID `json:"spender"`
}

type GetAllowanceResponse struct {
	Owner     application.AccountID `json:"owner"`
	Spender   application.AccountID `json:"spender"`
	Allowance *uint256.Int          `json:"allowance"`
}

type TokenInfo struct {
	Name        string                `json:"name"`
	Ticker      string                `json:"ticker"`
	Owner       application.AccountID `json:"owner"`
	TotalSupply *uint256.Int          `json:"totalSupply"`
	Initialized bool                  `json:"initialized"`
}

type GetLedgerEventsRequest struct {
	FromSeq uint64 `json:"fromSeq"`
	Limit   int    `json:"limit"`
}

const maxEventsPerCall = 1000

func decodeParam(params []any, out any) error {
	if len(params) == 0 {
		return application.ErrMissingParameters
	}

	paramBytes, err := json.Marshal(params[0])
	if err != nil {
		return fmt.Errorf("failed to marshal parameter: %w", err)
	}

	if err := json.Unmarshal(paramBytes, out); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	return nil
}

// view runs f against a read-only snapshot of the ledger.
func (c *CustomRPC) view(ctx context.Context, f func(tx kv.Tx) (any, error)) (any, error) {
	if c.db == nil {
		return nil, application.ErrDatabaseNotAvailable
	}

	tx, err := c.db.BeginRo(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ro: %w", err)
	}
	defer tx.Rollback()

	return f(tx)
}

// GetBalance returns an account balance, zero for unknown accounts
func (c *CustomRPC) GetBalance(ctx context.Context, params []any) (any, error) {
	var req GetBalanceRequest
	if err := decodeParam(params, &req); err != nil {
		return nil, err
	}

	if req.Account == "" {
		return nil, application.ErrMissingParameters
	}

	return c.view(ctx, func(tx kv.Tx) (any, error) {
		r := application.NewKVReader(tx)

		bal, err := r.Balance(req.Account)
		if err != nil {
			return nil, err
		}

		funded, err := r.HasBalance(req.Account)
		if err != nil {
			return nil, err
		}

		return GetBalanceResponse{Account: req.Account, Balance: bal, Funded: funded}, nil
	})
}

// GetAllowance returns how much spender may still move out of owner's balance
func (c *CustomRPC) GetAllowance(ctx context.Context, params []any) (any, error) {
	var req GetAllowanceRequest
	if err := decodeParam(params, &req); err != nil {
		return nil, err
	}

	if req.Owner == "" || req.Spender == "" {
		return nil, application.ErrMissingParameters
	}

	return c.view(ctx, func(tx kv.Tx) (any, error) {
		allowance, err := application.NewKVReader(tx).Allowance(req.Owner, req.Spender)
		if err != nil {
			return nil, err
		}

		return GetAllowanceResponse{Owner: req.Owner, Spender: req.Spender, Allowance: allowance}, nil
	})
}

// GetTokenInfo returns the genesis configuration and the init flag
func (c *CustomRPC) GetTokenInfo(ctx context.Context, _ []any) (any, error) {
	return c.view(ctx, func(tx kv.Tx) (any, error) {
		r := application.NewKVReader(tx)

		cfg, err := r.Config()
		if err != nil {
			return nil, err
		}

		initialized, err := r.Initialized()
		if err != nil {
			return nil, err
		}

		return TokenInfo{
			Name:        cfg.Name,
			Ticker:      cfg.Ticker,
			Owner:       cfg.Owner,
			TotalSupply: cfg.TotalSupply,
			Initialized: initialized,
		}, nil
	})
}

// GetLedgerEvents pages through emitted Transfer and Approval events
func (c *CustomRPC) GetLedgerEvents(ctx context.Context, params []any) (any, error) {
	req := GetLedgerEventsRequest{Limit: maxEventsPerCall}
	if err := decodeParam(params, &req); err != nil && !errors.Is(err, application.ErrMissingParameters) {
		return nil, err
	}

	if req.Limit <= 0 || req.Limit > maxEventsPerCall {
		req.Limit = maxEventsPerCall
	}

	return c.view(ctx, func(tx kv.Tx) (any, error) {
		events, err := application.ListEvents(ctx, tx, req.FromSeq, req.Limit)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}

		if events == nil {
			events = []application.EventRecord{}
		}

		return events, nil
	})
}
