package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load consults so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TUFFY_CONFIG_PATH", "PGHOST", "PGPORT", "PGSSLMODE",
		"POSTGRES_USER", "POSTGRES_PASSWORD",
		"TUFFY_DATABASE", "TUFFY_OWNER", "TUFFY_OWNER_PASSWORD", "TUFFY_EXTENSIONS",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUFFY_CONFIG_PATH", t.TempDir())

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", settings.Host)
	assert.Equal(t, 5432, settings.Port)
	assert.Equal(t, "postgres", settings.AdminUser)
	assert.Equal(t, "tuffy", settings.Database)
	assert.Equal(t, "tuffy", settings.Owner)
	assert.Equal(t, "tuffy", settings.OwnerPassword)
	assert.Equal(t, []string{"intarray", "intagg"}, settings.Extensions)
	assert.Equal(t, "default", settings.Source("database"))
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	content := []byte(`
host: db.internal
port: 5433
database: tuffy_ci
owner: tuffy_ci
extensions: [intarray]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), content, 0o644))
	t.Setenv("TUFFY_CONFIG_PATH", dir)

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", settings.Host)
	assert.Equal(t, 5433, settings.Port)
	assert.Equal(t, "tuffy_ci", settings.Database)
	assert.Equal(t, []string{"intarray"}, settings.Extensions)
	assert.Equal(t, "file", settings.Source("host"))

	// Untouched values keep their defaults.
	assert.Equal(t, "postgres", settings.AdminUser)
	assert.Equal(t, "default", settings.Source("admin_user"))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte("database: from_file\n"), 0o644))

	t.Setenv("TUFFY_CONFIG_PATH", dir)
	t.Setenv("TUFFY_DATABASE", "from_env")
	t.Setenv("POSTGRES_USER", "admin")
	t.Setenv("PGPORT", "15432")
	t.Setenv("TUFFY_EXTENSIONS", "intarray, intagg, hstore")

	settings, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from_env", settings.Database)
	assert.Equal(t, "environment", settings.Source("database"))
	assert.Equal(t, "admin", settings.AdminUser)
	assert.Equal(t, 15432, settings.Port)
	assert.Equal(t, []string{"intarray", "intagg", "hstore"}, settings.Extensions)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, ConfigFileName),
		[]byte("database: [unclosed\n"), 0o644))
	t.Setenv("TUFFY_CONFIG_PATH", dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{
			name:   "defaults-valid",
			mutate: func(s *Settings) {},
		},
		{
			name:    "bad-port",
			mutate:  func(s *Settings) { s.Port = -1 },
			wantErr: true,
		},
		{
			name:    "database-with-quote",
			mutate:  func(s *Settings) { s.Database = `tuffy"; DROP DATABASE postgres; --` },
			wantErr: true,
		},
		{
			name:    "owner-with-space",
			mutate:  func(s *Settings) { s.Owner = "tuffy user" },
			wantErr: true,
		},
		{
			name:    "bad-extension",
			mutate:  func(s *Settings) { s.Extensions = []string{"int-array"} },
			wantErr: true,
		},
		{
			name:   "underscore-names-valid",
			mutate: func(s *Settings) { s.Database = "tuffy_test"; s.Owner = "_tuffy" },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := newDefault()
			tc.mutate(settings)

			err := settings.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatTextMasksSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("TUFFY_CONFIG_PATH", t.TempDir())
	t.Setenv("POSTGRES_PASSWORD", "hunter2")

	settings, err := Load()
	require.NoError(t, err)

	text := settings.FormatText()
	assert.NotContains(t, text, "hunter2")
	assert.Contains(t, text, "****")
	assert.Contains(t, text, "admin_password")
}
