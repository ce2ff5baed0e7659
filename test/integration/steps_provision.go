package integration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/linqs/tuffyctl/pkg/db"
	"github.com/linqs/tuffyctl/pkg/provision"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc      *TestContext
	lastErr error
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a PostgreSQL server is running$`, s.aPostgresServerIsRunning)
	sc.Step(`^the server has been provisioned$`, s.iProvision)
	sc.Step(`^a scratch table exists in the database$`, s.aScratchTableExists)

	sc.Step(`^I provision the Tuffy database$`, s.iProvision)
	sc.Step(`^I drop the Tuffy database$`, s.iDrop)
	sc.Step(`^I provision against an unreachable server$`, s.iProvisionUnreachable)

	sc.Step(`^provisioning succeeds$`, s.provisioningSucceeds)
	sc.Step(`^provisioning fails$`, s.provisioningFails)
	sc.Step(`^the database "([^"]*)" exists$`, s.theDatabaseExists)
	sc.Step(`^the database "([^"]*)" does not exist$`, s.theDatabaseDoesNotExist)
	sc.Step(`^the role "([^"]*)" is a login superuser without inheritance$`, s.theRoleIsALoginSuperuser)
	sc.Step(`^the role "([^"]*)" does not exist$`, s.theRoleDoesNotExist)
	sc.Step(`^the extension "([^"]*)" is installed$`, s.theExtensionIsInstalled)
	sc.Step(`^I can connect as "([^"]*)" with password "([^"]*)"$`, s.iCanConnectAs)
	sc.Step(`^the database contains no user tables$`, s.theDatabaseContainsNoUserTables)
}

func (s *StepsContext) provisioner() *provision.Provisioner {
	return provision.New(s.tc.Settings, func(dbname string) (*sql.DB, error) {
		return s.tc.OpenAdmin(dbname)
	})
}

func (s *StepsContext) aPostgresServerIsRunning() error {
	conn, err := s.tc.OpenAdmin("postgres")
	if err != nil {
		return err
	}
	return conn.Close()
}

func (s *StepsContext) iProvision() error {
	s.lastErr = s.provisioner().Provision(context.Background())
	return nil
}

func (s *StepsContext) iDrop() error {
	s.lastErr = s.provisioner().Drop(context.Background())
	return s.lastErr
}

func (s *StepsContext) iProvisionUnreachable() error {
	settings := *s.tc.Settings
	settings.Port = 1 // nothing listens here

	p := provision.New(&settings, func(dbname string) (*sql.DB, error) {
		return db.Open(&settings, dbname)
	})
	s.lastErr = p.Provision(context.Background())
	return nil
}

func (s *StepsContext) aScratchTableExists() error {
	conn, err := s.tc.OpenAdmin(s.tc.Settings.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Exec(`CREATE TABLE scratch (id INT)`)
	return err
}

func (s *StepsContext) provisioningSucceeds() error {
	if s.lastErr != nil {
		return fmt.Errorf("expected success, got: %w", s.lastErr)
	}
	return nil
}

func (s *StepsContext) provisioningFails() error {
	if s.lastErr == nil {
		return fmt.Errorf("expected provisioning to fail, but it succeeded")
	}
	return nil
}

func (s *StepsContext) theDatabaseExists(name string) error {
	exists, err := s.databaseExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("database %q does not exist", name)
	}
	return nil
}

func (s *StepsContext) theDatabaseDoesNotExist(name string) error {
	exists, err := s.databaseExists(name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("database %q still exists", name)
	}
	return nil
}

func (s *StepsContext) databaseExists(name string) (bool, error) {
	conn, err := s.tc.OpenAdmin("postgres")
	if err != nil {
		return false, err
	}
	defer conn.Close()

	var exists bool
	err = conn.QueryRow(`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	return exists, err
}

func (s *StepsContext) theRoleIsALoginSuperuser(name string) error {
	conn, err := s.tc.OpenAdmin("postgres")
	if err != nil {
		return err
	}
	defer conn.Close()

	var super, inherit, login bool
	err = conn.QueryRow(
		`SELECT rolsuper, rolinherit, rolcanlogin FROM pg_roles WHERE rolname = $1`, name,
	).Scan(&super, &inherit, &login)
	if err != nil {
		return fmt.Errorf("role %q not found: %w", name, err)
	}

	if !super || inherit || !login {
		return fmt.Errorf("role %q has wrong attributes: superuser=%v inherit=%v login=%v",
			name, super, inherit, login)
	}
	return nil
}

func (s *StepsContext) theRoleDoesNotExist(name string) error {
	conn, err := s.tc.OpenAdmin("postgres")
	if err != nil {
		return err
	}
	defer conn.Close()

	var exists bool
	err = conn.QueryRow(`SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)`, name).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("role %q still exists", name)
	}
	return nil
}

func (s *StepsContext) theExtensionIsInstalled(name string) error {
	conn, err := s.tc.OpenAdmin(s.tc.Settings.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	var exists bool
	err = conn.QueryRow(`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = $1)`, name).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("extension %q is not installed", name)
	}
	return nil
}

func (s *StepsContext) iCanConnectAs(user, password string) error {
	conn, err := s.tc.OpenAs(user, password, s.tc.Settings.Database)
	if err != nil {
		return fmt.Errorf("failed to connect as %q: %w", user, err)
	}
	return conn.Close()
}

func (s *StepsContext) theDatabaseContainsNoUserTables() error {
	conn, err := s.tc.OpenAdmin(s.tc.Settings.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	var count int
	err = conn.QueryRow(
		`SELECT count(*) FROM pg_tables WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`,
	).Scan(&count)
	if err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("expected no user tables, found %d", count)
	}
	return nil
}
