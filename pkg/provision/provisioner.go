package provision

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/linqs/tuffyctl/pkg/config"
	"github.com/linqs/tuffyctl/pkg/db"
)

// OpenFunc opens an admin connection to the named database.
type OpenFunc func(dbname string) (*sql.DB, error)

// Provisioner runs the catalog statements that prepare a PostgreSQL server
// for the Tuffy engine. Statements run sequentially and the first failure
// aborts the whole run; there is no retry or partial recovery.
type Provisioner struct {
	settings *config.Settings
	open     OpenFunc
}

// New returns a Provisioner using the given connection opener.
func New(settings *config.Settings, open OpenFunc) *Provisioner {
	return &Provisioner{settings: settings, open: open}
}

// Provision drops and recreates the target database, drops and recreates the
// owner role with LOGIN SUPERUSER NOINHERIT, grants it all privileges on the
// database, and enables the configured extensions. The end state is the same
// whether or not the database or role existed beforehand.
func (p *Provisioner) Provision(ctx context.Context) error {
	admin, err := p.open(db.MaintenanceDatabase)
	if err != nil {
		return err
	}

	if err := p.recreateDatabase(ctx, admin); err != nil {
		_ = admin.Close()
		return err
	}
	_ = admin.Close()

	// DROP/CREATE DATABASE cannot run against the database itself, so the
	// remaining statements use a fresh connection to the new database.
	target, err := p.open(p.settings.Database)
	if err != nil {
		return err
	}
	defer func() { _ = target.Close() }()

	if err := p.recreateOwner(ctx, target); err != nil {
		return err
	}
	if err := p.grantPrivileges(ctx, target); err != nil {
		return err
	}
	if err := p.enableExtensions(ctx, target); err != nil {
		return err
	}

	return nil
}

// Drop removes the provisioned database and role.
func (p *Provisioner) Drop(ctx context.Context) error {
	admin, err := p.open(db.MaintenanceDatabase)
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()

	dropDB := fmt.Sprintf("DROP DATABASE IF EXISTS %s", pq.QuoteIdentifier(p.settings.Database))
	if _, err := admin.ExecContext(ctx, dropDB); err != nil {
		return fmt.Errorf("failed to drop database %s: %w", p.settings.Database, err)
	}

	dropRole := fmt.Sprintf("DROP ROLE IF EXISTS %s", pq.QuoteIdentifier(p.settings.Owner))
	if _, err := admin.ExecContext(ctx, dropRole); err != nil {
		return fmt.Errorf("failed to drop role %s: %w", p.settings.Owner, err)
	}

	return nil
}

func (p *Provisioner) recreateDatabase(ctx context.Context, conn *sql.DB) error {
	name := pq.QuoteIdentifier(p.settings.Database)

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("failed to drop database %s: %w", p.settings.Database, err)
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", name)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", p.settings.Database, err)
	}

	return nil
}

func (p *Provisioner) recreateOwner(ctx context.Context, conn *sql.DB) error {
	name := pq.QuoteIdentifier(p.settings.Owner)

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("DROP ROLE IF EXISTS %s", name)); err != nil {
		return fmt.Errorf("failed to drop role %s: %w", p.settings.Owner, err)
	}

	// NOINHERIT matters: the role is a superuser and must not pick up
	// grants made to groups it happens to be a member of.
	create := fmt.Sprintf(
		"CREATE ROLE %s WITH LOGIN SUPERUSER NOINHERIT PASSWORD %s",
		name, pq.QuoteLiteral(p.settings.OwnerPassword),
	)
	if _, err := conn.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create role %s: %w", p.settings.Owner, err)
	}

	return nil
}

func (p *Provisioner) grantPrivileges(ctx context.Context, conn *sql.DB) error {
	grant := fmt.Sprintf(
		"GRANT ALL PRIVILEGES ON DATABASE %s TO %s",
		pq.QuoteIdentifier(p.settings.Database), pq.QuoteIdentifier(p.settings.Owner),
	)
	if _, err := conn.ExecContext(ctx, grant); err != nil {
		return fmt.Errorf("failed to grant privileges on %s to %s: %w",
			p.settings.Database, p.settings.Owner, err)
	}

	return nil
}

func (p *Provisioner) enableExtensions(ctx context.Context, conn *sql.DB) error {
	for _, ext := range p.settings.Extensions {
		stmt := fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s", pq.QuoteIdentifier(ext))
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create extension %s: %w", ext, err)
		}
	}

	return nil
}

// Record appends a row to the provision_log table. The table is created by
// the tool's migrations; see tuffyctl db migrate.
func (p *Provisioner) Record(ctx context.Context, conn *sql.DB, toolVersion string) error {
	_, err := conn.ExecContext(ctx, `
		INSERT INTO provision_log (database_name, owner_role, extensions, tool_version)
		VALUES ($1, $2, $3, $4)
	`, p.settings.Database, p.settings.Owner, strings.Join(p.settings.Extensions, ","), toolVersion)
	if err != nil {
		return fmt.Errorf("failed to record provision run: %w", err)
	}

	return nil
}
