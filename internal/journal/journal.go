// Package journal keeps a best-effort audit trail of submitted
// transactions in Postgres. The chain owns all game state; this table is
// diagnostic only and the client runs fine without it.
package journal

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"chainjack/internal/submit"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	request_id  TEXT PRIMARY KEY,
	method      TEXT NOT NULL,
	game_id     TEXT NOT NULL DEFAULT '',
	tx_hash     TEXT NOT NULL DEFAULT '',
	gas_used    BIGINT NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	took_ms     BIGINT NOT NULL DEFAULT 0,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Journal struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func Open(ctx context.Context, dsn string, log zerolog.Logger) (*Journal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}
	return &Journal{pool: pool, log: log}, nil
}

func (j *Journal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}

// Record inserts one submission. Insert failures are logged and dropped; a
// broken journal must never interfere with the game path.
func (j *Journal) Record(ctx context.Context, e submit.Entry) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := j.pool.Exec(ctx,
		`INSERT INTO submissions (request_id, method, game_id, tx_hash, gas_used, error, took_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (request_id) DO NOTHING`,
		e.RequestID, e.Method, e.GameID, e.TxHash, int64(e.GasUsed), e.Err, e.Took.Milliseconds())
	if err != nil {
		j.log.Warn().Err(err).Str("request_id", e.RequestID).Msg("journal insert failed")
	}
}
