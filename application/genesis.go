package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/kv"
	"github.com/rs/zerolog/log"
)

// DefaultTokenConfig returns the token used for local development.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Owner:       "alice",
		TotalSupply: uint256.NewInt(21_000_000_000_000), // 21,000,000 with 6 decimals
		Name:        "Example Token",
		Ticker:      "EXT",
	}
}

// InitializeGenesis persists the token configuration on first startup.
// Later startups keep the stored configuration. No balance is created here:
// the owner mints the supply with an init transaction.
func InitializeGenesis(ctx context.Context, db kv.RwDB, cfg TokenConfig) error {
	if db == nil {
		return ErrDatabaseNil
	}

	if cfg.Owner == "" {
		return fmt.Errorf("genesis owner: %w", ErrMissingParameters)
	}

	// Begin transaction
	tx, err := db.BeginRw(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer tx.Rollback()

	existing, err := tx.GetOne(TokenBucket, genesisMarker)
	if err != nil {
		return fmt.Errorf("failed to check genesis marker: %w", err)
	}

	store := NewKVStore(tx)

	if len(existing) > 0 {
		stored, err := store.Config()
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			return fmt.Errorf("failed to read stored token config: %w", err)
		}

		if stored.Owner != cfg.Owner || stored.Name != cfg.Name || stored.Ticker != cfg.Ticker {
			log.Warn().
				Str("stored_owner", string(stored.Owner)).
				Str("stored_ticker", stored.Ticker).
				Msg("Token config differs from flags, keeping stored genesis config")
		}

		log.Info().Msg("Genesis already initialized, skipping...")

		return tx.Commit()
	}

	log.Info().Msg("First startup detected - writing token config...")

	if err := store.PutConfig(cfg); err != nil {
		return fmt.Errorf("failed to set token config: %w", err)
	}

	err = tx.Put(TokenBucket, genesisMarker, []byte("true"))
	if err != nil {
		return fmt.Errorf("failed to set genesis marker: %w", err)
	}

	supply := "0"
	if cfg.TotalSupply != nil {
		supply = cfg.TotalSupply.Dec()
	}

	log.Info().
		Str("owner", string(cfg.Owner)).
		Str("name", cfg.Name).
		Str("ticker", cfg.Ticker).
		Str("total_supply", supply).
		Msg("Genesis initialization completed successfully!")

	return tx.Commit()
}
