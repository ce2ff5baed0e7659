package provision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/linqs/tuffyctl/pkg/config"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Host:          "localhost",
		Port:          5432,
		AdminUser:     "postgres",
		Database:      "tuffy",
		Owner:         "tuffy",
		OwnerPassword: "tuffy",
		Extensions:    []string{"intarray", "intagg"},
	}
}

// mockOpener returns an OpenFunc that hands out prepared sqlmock connections
// keyed by database name, in order.
func mockOpener(t *testing.T, conns map[string][]*sql.DB) OpenFunc {
	t.Helper()
	return func(dbname string) (*sql.DB, error) {
		queue := conns[dbname]
		if len(queue) == 0 {
			return nil, fmt.Errorf("unexpected connection to %q", dbname)
		}
		conn := queue[0]
		conns[dbname] = queue[1:]
		return conn, nil
	}
}

func TestProvisionRunsAllStatementsInOrder(t *testing.T) {
	adminDB, adminMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	targetDB, targetMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	adminMock.ExpectExec(`DROP DATABASE IF EXISTS "tuffy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectExec(`CREATE DATABASE "tuffy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectClose()

	targetMock.ExpectExec(`DROP ROLE IF EXISTS "tuffy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectExec(`CREATE ROLE "tuffy" WITH LOGIN SUPERUSER NOINHERIT PASSWORD 'tuffy'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectExec(`GRANT ALL PRIVILEGES ON DATABASE "tuffy" TO "tuffy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS "intarray"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS "intagg"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectClose()

	open := mockOpener(t, map[string][]*sql.DB{
		"postgres": {adminDB},
		"tuffy":    {targetDB},
	})

	p := New(testSettings(), open)
	if err := p.Provision(context.Background()); err != nil {
		t.Errorf("Provision() error = %v", err)
	}

	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled admin expectations: %v", err)
	}
	if err := targetMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled target expectations: %v", err)
	}
}

func TestProvisionAbortsOnFirstError(t *testing.T) {
	adminDB, adminMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	boom := errors.New("permission denied to create database")
	adminMock.ExpectExec(`DROP DATABASE IF EXISTS "tuffy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectExec(`CREATE DATABASE "tuffy"`).
		WillReturnError(boom)
	adminMock.ExpectClose()

	open := mockOpener(t, map[string][]*sql.DB{
		"postgres": {adminDB},
	})

	p := New(testSettings(), open)
	err = p.Provision(context.Background())
	if err == nil {
		t.Fatal("Provision() expected error, got nil")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Provision() error = %v, want wrapped %v", err, boom)
	}

	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestProvisionFailsWhenServerUnreachable(t *testing.T) {
	unreachable := errors.New("connection refused")
	open := func(dbname string) (*sql.DB, error) {
		return nil, unreachable
	}

	p := New(testSettings(), open)
	if err := p.Provision(context.Background()); !errors.Is(err, unreachable) {
		t.Errorf("Provision() error = %v, want %v", err, unreachable)
	}
}

func TestProvisionQuotesNonDefaultNames(t *testing.T) {
	settings := testSettings()
	settings.Database = "tuffy_test"
	settings.Owner = "tuffy_runner"
	settings.OwnerPassword = "it's a secret"
	settings.Extensions = []string{"intarray"}

	adminDB, adminMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	targetDB, targetMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	adminMock.ExpectExec(`DROP DATABASE IF EXISTS "tuffy_test"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectExec(`CREATE DATABASE "tuffy_test"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectClose()

	targetMock.ExpectExec(`DROP ROLE IF EXISTS "tuffy_runner"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// The password literal keeps its embedded quote, doubled.
	targetMock.ExpectExec(`CREATE ROLE "tuffy_runner" WITH LOGIN SUPERUSER NOINHERIT PASSWORD 'it''s a secret'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectExec(`GRANT ALL PRIVILEGES ON DATABASE "tuffy_test" TO "tuffy_runner"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS "intarray"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	targetMock.ExpectClose()

	open := mockOpener(t, map[string][]*sql.DB{
		"postgres":   {adminDB},
		"tuffy_test": {targetDB},
	})

	p := New(settings, open)
	if err := p.Provision(context.Background()); err != nil {
		t.Errorf("Provision() error = %v", err)
	}

	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled admin expectations: %v", err)
	}
	if err := targetMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled target expectations: %v", err)
	}
}

func TestDrop(t *testing.T) {
	adminDB, adminMock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	adminMock.ExpectExec(`DROP DATABASE IF EXISTS "tuffy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectExec(`DROP ROLE IF EXISTS "tuffy"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	adminMock.ExpectClose()

	open := mockOpener(t, map[string][]*sql.DB{
		"postgres": {adminDB},
	})

	p := New(testSettings(), open)
	if err := p.Drop(context.Background()); err != nil {
		t.Errorf("Drop() error = %v", err)
	}

	if err := adminMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecord(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec(`INSERT INTO provision_log`).
		WithArgs("tuffy", "tuffy", "intarray,intagg", "dev").
		WillReturnResult(sqlmock.NewResult(1, 1))

	p := New(testSettings(), nil)
	if err := p.Record(context.Background(), conn, "dev"); err != nil {
		t.Errorf("Record() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
