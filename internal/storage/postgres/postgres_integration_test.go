package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/fdg312/plateplan/internal/catalog"
	"github.com/fdg312/plateplan/internal/dbmigrate"
	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/storage/postgres"
	"github.com/fdg312/plateplan/internal/storage/storagetest"
)

// startPostgres runs a throwaway postgres container and returns its URL.
// The test is skipped when docker is unavailable.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "plateplan",
				"POSTGRES_PASSWORD": "plateplan",
				"POSTGRES_DB":       "plateplan",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("postgres://plateplan:plateplan@%s:%s/plateplan?sslmode=disable", host, port.Port())
}

func TestPostgresStorageContract(t *testing.T) {
	dbURL := startPostgres(t)
	ctx := context.Background()

	if err := dbmigrate.Run(ctx, "up", dbURL, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	store, err := postgres.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	t.Run("Seed", func(t *testing.T) {
		seed, err := catalog.Load()
		if err != nil {
			t.Fatal(err)
		}
		// Twice, to prove the seed is idempotent.
		for i := 0; i < 2; i++ {
			if err := seed.Apply(ctx, store); err != nil {
				t.Fatalf("apply #%d: %v", i+1, err)
			}
		}
		templates, err := store.GetTemplatesStorage().ListTemplates(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(templates) != len(seed.Templates) {
			t.Errorf("expected %d templates, got %d", len(seed.Templates), len(templates))
		}
		if err := store.Truncate(ctx); err != nil {
			t.Fatal(err)
		}
	})

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		if err := store.Truncate(ctx); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return store
	})
}
