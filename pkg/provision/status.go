package provision

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/linqs/tuffyctl/pkg/config"
)

// Status describes how much of the expected provisioning is in place.
type Status struct {
	Database       string
	Owner          string
	DatabaseExists bool
	RoleExists     bool
	Superuser      bool
	Inherit        bool
	CanLogin       bool
	// Extensions maps each required extension to whether it is installed
	// in the target database.
	Extensions map[string]bool
}

// Provisioned reports whether the server matches the fully provisioned
// state: database present, owner a LOGIN SUPERUSER NOINHERIT role, and all
// required extensions installed.
func (s *Status) Provisioned() bool {
	if !s.DatabaseExists || !s.RoleExists {
		return false
	}
	if !s.Superuser || s.Inherit || !s.CanLogin {
		return false
	}
	for _, installed := range s.Extensions {
		if !installed {
			return false
		}
	}
	return true
}

// FormatText returns a human-readable status report.
func (s *Status) FormatText() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Database %q exists: %v\n", s.Database, s.DatabaseExists))
	if s.RoleExists {
		sb.WriteString(fmt.Sprintf("Role %q exists: true (superuser: %v, inherit: %v, login: %v)\n",
			s.Owner, s.Superuser, s.Inherit, s.CanLogin))
	} else {
		sb.WriteString(fmt.Sprintf("Role %q exists: false\n", s.Owner))
	}
	for _, name := range sortedKeys(s.Extensions) {
		sb.WriteString(fmt.Sprintf("Extension %q installed: %v\n", name, s.Extensions[name]))
	}

	return sb.String()
}

// Inspect queries the catalog through a connection to the target database.
// pg_database and pg_roles are cluster-wide; pg_extension is scoped to the
// connected database, which is why the connection must be to the target.
func Inspect(gormDB *gorm.DB, settings *config.Settings) (*Status, error) {
	status := &Status{
		Database:   settings.Database,
		Owner:      settings.Owner,
		Extensions: make(map[string]bool, len(settings.Extensions)),
	}

	if err := gormDB.Raw(
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)`,
		settings.Database,
	).Scan(&status.DatabaseExists).Error; err != nil {
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}

	var role struct {
		Rolsuper    bool
		Rolinherit  bool
		Rolcanlogin bool
	}
	tx := gormDB.Raw(
		`SELECT rolsuper, rolinherit, rolcanlogin FROM pg_roles WHERE rolname = ?`,
		settings.Owner,
	).Scan(&role)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to check role attributes: %w", tx.Error)
	}
	if tx.RowsAffected > 0 {
		status.RoleExists = true
		status.Superuser = role.Rolsuper
		status.Inherit = role.Rolinherit
		status.CanLogin = role.Rolcanlogin
	}

	var installed []string
	if err := gormDB.Raw(`SELECT extname FROM pg_extension`).Scan(&installed).Error; err != nil {
		return nil, fmt.Errorf("failed to list extensions: %w", err)
	}

	installedSet := make(map[string]bool, len(installed))
	for _, name := range installed {
		installedSet[name] = true
	}
	for _, name := range settings.Extensions {
		status.Extensions[name] = installedSet[name]
	}

	return status, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
