package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/zerodte/internal/domain"
)

// UsageStore implements domain.UsageArchive using PostgreSQL. Redis holds the
// rolling 24-hour window; this table is the durable record across days.
type UsageStore struct {
	pool *pgxpool.Pool
}

// NewUsageStore creates a new UsageStore backed by the given connection pool.
func NewUsageStore(pool *pgxpool.Pool) *UsageStore {
	return &UsageStore{pool: pool}
}

// ArchiveCycle inserts one analysis cycle. The per-agent token map is stored
// as JSONB.
func (s *UsageStore) ArchiveCycle(ctx context.Context, cycle domain.UsageCycle) error {
	agentsJSON, err := json.Marshal(cycle.Agents)
	if err != nil {
		return fmt.Errorf("postgres: marshal cycle agents: %w", err)
	}

	const query = `
		INSERT INTO usage_cycles
			(cycle_date, cycle_time, mode, agents, input_tokens, output_tokens, latency_secs)
		VALUES ($1::date, $2, $3, $4, $5, $6, $7)`
	_, err = s.pool.Exec(ctx, query,
		cycle.Date, cycle.Timestamp, cycle.Mode, agentsJSON,
		cycle.TotalInput, cycle.TotalOutput, cycle.LatencySecs,
	)
	if err != nil {
		return fmt.Errorf("postgres: archive usage cycle: %w", err)
	}
	return nil
}

// ListCycles returns cycles for a date, newest first, up to limit.
func (s *UsageStore) ListCycles(ctx context.Context, date string, limit int) ([]domain.UsageCycle, error) {
	query := `
		SELECT cycle_date::text, cycle_time, mode, agents, input_tokens, output_tokens, latency_secs
		FROM usage_cycles
		WHERE cycle_date = $1::date
		ORDER BY id DESC`
	args := []any{date}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list usage cycles: %w", err)
	}
	defer rows.Close()

	var cycles []domain.UsageCycle
	for rows.Next() {
		var (
			c          domain.UsageCycle
			agentsJSON []byte
		)
		if err := rows.Scan(&c.Date, &c.Timestamp, &c.Mode, &agentsJSON,
			&c.TotalInput, &c.TotalOutput, &c.LatencySecs); err != nil {
			return nil, fmt.Errorf("postgres: scan usage cycle: %w", err)
		}
		if err := json.Unmarshal(agentsJSON, &c.Agents); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal cycle agents: %w", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate usage cycles: %w", err)
	}
	return cycles, nil
}

// Compile-time interface check.
var _ domain.UsageArchive = (*UsageStore)(nil)
