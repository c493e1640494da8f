package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var (
	_ Monitor         = (*PoolMonitor)(nil)
	_ pgx.QueryTracer = (*queryTracer)(nil)
)

// PoolMonitor samples query health from a pgx connection pool. A tracer on
// every connection accumulates per-query timings; each Stats call runs a
// probe query, drains the accumulated window, and reads pool utilization.
type PoolMonitor struct {
	pool   *pgxpool.Pool
	tracer *queryTracer
	logger zerolog.Logger
}

// NewPoolMonitor connects to the database and verifies the connection with
// a ping. Queries at or above slowCutoff count as slow.
func NewPoolMonitor(ctx context.Context, dsn string, slowCutoff time.Duration, logger zerolog.Logger) (*PoolMonitor, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if slowCutoff <= 0 {
		slowCutoff = 200 * time.Millisecond
	}
	tracer := &queryTracer{slowCutoff: slowCutoff}
	poolCfg.ConnConfig.Tracer = tracer

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log := logger.With().Str("component", "db-monitor").Logger()
	log.Info().Dur("slow_cutoff", slowCutoff).Msg("database monitor connected")
	return &PoolMonitor{pool: pool, tracer: tracer, logger: log}, nil
}

// Stats runs a probe query, then reports the tracer window accumulated
// since the previous call plus current pool utilization.
func (m *PoolMonitor) Stats(ctx context.Context) (Stats, error) {
	var one int
	if err := m.pool.QueryRow(ctx, "select 1").Scan(&one); err != nil {
		return Stats{}, fmt.Errorf("probe query: %w", err)
	}

	s := m.tracer.window()
	stat := m.pool.Stat()
	if total := stat.MaxConns(); total > 0 {
		s.PoolUtilization = float64(stat.AcquiredConns()) / float64(total)
	}
	return s, nil
}

// Close releases the connection pool.
func (m *PoolMonitor) Close() {
	m.pool.Close()
}

type tracerCtxKey struct{}

// queryTracer accumulates per-query timings between Stats calls.
type queryTracer struct {
	slowCutoff time.Duration

	mu          sync.Mutex
	durationSum time.Duration
	queries     int64
	slow        int64
	errors      int64
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, tracerCtxKey{}, time.Now())
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(tracerCtxKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries++
	t.durationSum += elapsed
	if elapsed >= t.slowCutoff {
		t.slow++
	}
	if data.Err != nil {
		t.errors++
	}
}

// window returns the stats accumulated since the previous call and starts a
// fresh window.
func (t *queryTracer) window() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Stats
	if t.queries > 0 {
		s.AverageQueryTimeMS = float64(t.durationSum) / float64(t.queries) / float64(time.Millisecond)
		s.ErrorRate = float64(t.errors) / float64(t.queries)
	}
	s.SlowQueries = t.slow

	t.durationSum = 0
	t.queries = 0
	t.slow = 0
	t.errors = 0
	return s
}
