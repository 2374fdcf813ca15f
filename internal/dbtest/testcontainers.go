// Package dbtest provides a Postgres testcontainer fixture shared by
// integration tests across the OHLCV cache and the paper store.
package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Postgres holds a running container plus a ready connection pool.
type Postgres struct {
	container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	DSN       string // connection string, for callers that need a database/sql driver instead of pgx
	t         *testing.T
}

// Start launches a disposable Postgres 15 container and connects a pool to it.
func Start(t *testing.T) *Postgres {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("fundcore_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("dbtest: failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("dbtest: failed to get connection string: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("dbtest: failed to parse connection string: %v", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("dbtest: failed to create pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("dbtest: failed to ping: %v", err)
	}

	pg := &Postgres{container: container, Pool: pool, DSN: connStr, t: t}
	t.Cleanup(pg.stop)
	return pg
}

// ApplyMigrations runs every *.sql file in dir in filename order.
func (p *Postgres) ApplyMigrations(dir string) {
	p.t.Helper()
	ctx := context.Background()

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		p.t.Fatalf("dbtest: failed to list migrations: %v", err)
	}
	sort.Strings(files)

	for _, f := range files {
		if filepath.Ext(f) != ".sql" {
			continue
		}
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			p.t.Fatalf("dbtest: failed to read migration %s: %v", f, err)
		}
		if _, err := p.Pool.Exec(ctx, string(sqlBytes)); err != nil {
			p.t.Fatalf("dbtest: failed to apply migration %s: %v", f, err)
		}
	}
}

// Truncate clears the named tables, useful between subtests.
func (p *Postgres) Truncate(tables ...string) {
	p.t.Helper()
	ctx := context.Background()
	for _, table := range tables {
		if _, err := p.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			p.t.Fatalf("dbtest: failed to truncate %s: %v", table, err)
		}
	}
}

func (p *Postgres) stop() {
	ctx := context.Background()
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.container != nil {
		_ = p.container.Terminate(ctx)
	}
}
