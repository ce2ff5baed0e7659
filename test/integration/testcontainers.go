package integration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/linqs/tuffyctl/pkg/config"
	"github.com/linqs/tuffyctl/pkg/db"
)

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	Container testcontainers.Container
	Settings  *config.Settings
}

// NewTestContext starts a PostgreSQL testcontainer and builds provisioning
// settings pointing at it.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	settings := &config.Settings{
		Host:          host,
		Port:          port.Int(),
		AdminUser:     "postgres",
		AdminPassword: "postgres",
		SSLMode:       "disable",
		Database:      "tuffy",
		Owner:         "tuffy",
		OwnerPassword: "tuffy",
		Extensions:    []string{"intarray", "intagg"},
	}

	return &TestContext{
		Container: pgContainer,
		Settings:  settings,
	}, nil
}

// OpenAdmin opens an admin connection to the named database on the container.
func (tc *TestContext) OpenAdmin(dbname string) (*sql.DB, error) {
	return db.Open(tc.Settings, dbname)
}

// OpenAs opens a connection to the target database with arbitrary
// credentials, for asserting that the provisioned role can log in.
func (tc *TestContext) OpenAs(user, password, dbname string) (*sql.DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		user, password, tc.Settings.Host, tc.Settings.Port, dbname)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Close tears down the container.
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}
