// Package records implements the read-only employee record source on Postgres.
package records

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/staffdex/internal/domain"
	"github.com/kailas-cloud/staffdex/internal/domain/search/query"
)

// querier is the consumer interface for record reads (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Repo reads tenant-scoped candidate records. The search engine owns no
// persistence; this repository is strictly read-only.
type Repo struct {
	pool querier
}

// New creates a record source repository.
func New(pool querier) *Repo {
	return &Repo{pool: pool}
}

// NewPool creates a pgx connection pool for the record source.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse records dsn: %w", err)
	}

	poolCfg.MaxConns = 25
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create records pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping records pool: %w", err)
	}

	return pool, nil
}

// Ping checks record source availability.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping record source: %w", err)
	}
	return nil
}

// FindCandidates returns the tenant's candidate records narrowed by the
// coarse structured filters. Fine-grained text matching happens in-process,
// not in the store.
func (r *Repo) FindCandidates(ctx context.Context, tenantID string, f query.Filters) ([]domain.Record, error) {
	sql, args := buildCandidateQuery(tenantID, f)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var rec domain.Record
		err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.FirstName, &rec.LastName,
			&rec.Title, &rec.Department, &rec.Skills, &rec.Bio,
			&rec.IsActive, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return out, nil
}

// buildCandidateQuery assembles the SELECT with positional args.
func buildCandidateQuery(tenantID string, f query.Filters) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, tenant_id, first_name, last_name, title, department, skills, bio, is_active, updated_at
FROM employees
WHERE tenant_id = $1`)
	args := []any{tenantID}

	if f.Department != "" {
		args = append(args, f.Department)
		b.WriteString(" AND lower(department) = lower($" + strconv.Itoa(len(args)) + ")")
	}
	if f.Title != "" {
		args = append(args, f.Title)
		b.WriteString(" AND lower(title) = lower($" + strconv.Itoa(len(args)) + ")")
	}
	if len(f.Skills) > 0 {
		// Skills filter is case-insensitive exact membership; filter values
		// arrive already lowercased from query normalization.
		args = append(args, f.Skills)
		b.WriteString(" AND EXISTS (SELECT 1 FROM unnest(skills) sk WHERE lower(sk) = ANY($" +
			strconv.Itoa(len(args)) + "))")
	}
	if !f.IncludeInactive {
		b.WriteString(" AND is_active")
	}

	b.WriteString(" ORDER BY updated_at DESC, id")

	return b.String(), args
}
