package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"positionScope/internal/model"
)

// Schema creates the report tables. Numeric columns take decimal strings.
const Schema = `
CREATE TABLE IF NOT EXISTS report_runs (
	run_id       uuid PRIMARY KEY,
	token        text NOT NULL,
	generated_at timestamptz NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS report_pools (
	run_id          uuid NOT NULL REFERENCES report_runs (run_id) ON DELETE CASCADE,
	pool_index      integer NOT NULL,
	pool_address    text NOT NULL,
	platform        text NOT NULL,
	pair            text NOT NULL,
	version         text NOT NULL,
	price_usd       numeric NOT NULL,
	volume_24h      numeric NOT NULL,
	liquidity_usd   numeric NOT NULL,
	current_tick    integer NOT NULL,
	fee_tier        integer NOT NULL,
	token0_symbol   text NOT NULL,
	token0_decimals smallint NOT NULL,
	token1_symbol   text NOT NULL,
	token1_decimals smallint NOT NULL,
	PRIMARY KEY (run_id, pool_index)
);

CREATE TABLE IF NOT EXISTS report_positions (
	run_id          uuid NOT NULL,
	pool_index      integer NOT NULL,
	position_index  integer NOT NULL,
	position_id     text NOT NULL,
	owner           text NOT NULL,
	tick_lower      integer NOT NULL,
	tick_upper      integer NOT NULL,
	liquidity       numeric NOT NULL,
	min_price       numeric NOT NULL,
	max_price       numeric NOT NULL,
	in_range        boolean NOT NULL,
	collected_fees0 numeric NOT NULL,
	collected_fees1 numeric NOT NULL,
	PRIMARY KEY (run_id, pool_index, position_index),
	FOREIGN KEY (run_id, pool_index) REFERENCES report_pools (run_id, pool_index) ON DELETE CASCADE
);
`

// Store persists analyze reports in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the report tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// PutReport writes the run, its pools and their positions in one transaction.
func (s *Store) PutReport(ctx context.Context, report model.Report) error {
	if _, err := uuid.Parse(report.RunID); err != nil {
		return fmt.Errorf("run id %q: %w", report.RunID, err)
	}
	batch := buildBatch(report)
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("write report row %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

func buildBatch(report model.Report) *pgx.Batch {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO report_runs (run_id, token, generated_at)
		VALUES ($1, $2, $3)
	`, report.RunID, report.Token, report.GeneratedAt)

	for i, pp := range report.Pools {
		batch.Queue(`
			INSERT INTO report_pools (
				run_id, pool_index, pool_address, platform, pair, version,
				price_usd, volume_24h, liquidity_usd, current_tick, fee_tier,
				token0_symbol, token0_decimals, token1_symbol, token1_decimals
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		`,
			report.RunID,
			i,
			pp.Pool.Address,
			pp.Pool.Platform,
			pp.Pool.Pair,
			pp.Pool.Version,
			pp.Pool.PriceUSD.String(),
			pp.Pool.Volume24h.String(),
			pp.Pool.LiquidityUSD.String(),
			pp.CurrentTick,
			int64(pp.FeeTier),
			pp.Token0.Symbol,
			int16(pp.Token0.Decimals),
			pp.Token1.Symbol,
			int16(pp.Token1.Decimals),
		)

		for j, pos := range pp.Positions {
			batch.Queue(`
				INSERT INTO report_positions (
					run_id, pool_index, position_index, position_id, owner,
					tick_lower, tick_upper, liquidity, min_price, max_price,
					in_range, collected_fees0, collected_fees1
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			`,
				report.RunID,
				i,
				j,
				pos.ID,
				pos.Owner,
				pos.TickLower,
				pos.TickUpper,
				pos.Liquidity,
				pos.PriceRange.MinPrice,
				pos.PriceRange.MaxPrice,
				pos.InRange,
				pos.CollectedFees0.String(),
				pos.CollectedFees1.String(),
			)
		}
	}
	return batch
}
