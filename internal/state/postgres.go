package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds the Postgres connection for the shared state store.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// PostgresSink publishes snapshots to a shared Postgres table, so multiple
// independent consumers observe one externally-visible connection state.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// Schema for the snapshot table. Applied with EnsureSchema.
const schema = `
CREATE TABLE IF NOT EXISTS realtime_state (
    key        TEXT PRIMARY KEY,
    snapshot   JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresSink connects a pool and ensures the snapshot table exists.
func NewPostgresSink(ctx context.Context, cfg DBConfig) (*PostgresSink, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	sink := &PostgresSink{pool: pool}
	if err := sink.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

// EnsureSchema creates the snapshot table when missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresSink) Get(ctx context.Context, key string) (Snapshot, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM realtime_state WHERE key = $1`, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *PostgresSink) Set(ctx context.Context, key string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO realtime_state (key, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET snapshot = $2, updated_at = now()
	`, key, raw)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
