//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// setupStore starts a throwaway PostgreSQL with the ledger schema applied.
func setupStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("taskbus"),
		postgres.WithUsername("taskbus"),
		postgres.WithPassword("taskbus"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("Failed to start Postgres testcontainer: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get Postgres connection string: %v", err)
	}

	s, err := NewPostgresStore(ctx, url)
	if err != nil {
		t.Fatalf("Failed to connect to Postgres: %v", err)
	}
	t.Cleanup(s.Close)

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return s
}
