package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/tuffy/config"
	ConfigFileName    = "tuffy.yml"
)

// identifierRgx matches names we are willing to use as SQL identifiers.
// Everything is still quoted before execution; this is a sanity filter.
var identifierRgx = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Settings holds all tuffyctl configuration settings
type Settings struct {
	// Host is the PostgreSQL server host
	Host string `yaml:"host" json:"host"`

	// Port is the PostgreSQL server port
	Port int `yaml:"port" json:"port"`

	// AdminUser is the administrative role used to run catalog statements
	AdminUser string `yaml:"admin_user" json:"admin_user"`

	// AdminPassword is the administrative role's password (may be empty for trust auth)
	AdminPassword string `yaml:"admin_password" json:"admin_password"`

	// SSLMode is the sslmode connection parameter
	SSLMode string `yaml:"sslmode" json:"sslmode"`

	// Database is the database created for the Tuffy engine
	Database string `yaml:"database" json:"database"`

	// Owner is the role created to own and access the database
	Owner string `yaml:"owner" json:"owner"`

	// OwnerPassword is the password set on the owner role
	OwnerPassword string `yaml:"owner_password" json:"owner_password"`

	// Extensions are the PostgreSQL extensions enabled in the database
	Extensions []string `yaml:"extensions" json:"extensions"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// newDefault returns settings matching the stock Tuffy Postgres setup:
// database "tuffy" owned by superuser role "tuffy" with the well-known
// password, intarray and intagg enabled.
func newDefault() *Settings {
	return &Settings{
		Host:          "localhost",
		Port:          5432,
		AdminUser:     "postgres",
		AdminPassword: "",
		SSLMode:       "disable",
		Database:      "tuffy",
		Owner:         "tuffy",
		OwnerPassword: "tuffy",
		Extensions:    []string{"intarray", "intagg"},
		sources:       make(map[string]string),
	}
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*Settings, error) {
	settings := newDefault()

	for _, name := range attributeNames() {
		settings.sources[name] = "default"
	}

	configPath := os.Getenv("TUFFY_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	settings.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(settings.configFilePath); err == nil {
		var fileSettings Settings
		if err := yaml.Unmarshal(data, &fileSettings); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", settings.configFilePath, err)
		}
		settings.applyFileConfig(&fileSettings)
	}

	settings.applyEnvConfig()

	return settings, nil
}

func attributeNames() []string {
	return []string{
		"host", "port", "admin_user", "admin_password", "sslmode",
		"database", "owner", "owner_password", "extensions",
	}
}

func (s *Settings) applyFileConfig(file *Settings) {
	if file.Host != "" {
		s.Host = file.Host
		s.sources["host"] = "file"
	}
	if file.Port != 0 {
		s.Port = file.Port
		s.sources["port"] = "file"
	}
	if file.AdminUser != "" {
		s.AdminUser = file.AdminUser
		s.sources["admin_user"] = "file"
	}
	if file.AdminPassword != "" {
		s.AdminPassword = file.AdminPassword
		s.sources["admin_password"] = "file"
	}
	if file.SSLMode != "" {
		s.SSLMode = file.SSLMode
		s.sources["sslmode"] = "file"
	}
	if file.Database != "" {
		s.Database = file.Database
		s.sources["database"] = "file"
	}
	if file.Owner != "" {
		s.Owner = file.Owner
		s.sources["owner"] = "file"
	}
	if file.OwnerPassword != "" {
		s.OwnerPassword = file.OwnerPassword
		s.sources["owner_password"] = "file"
	}
	if len(file.Extensions) > 0 {
		s.Extensions = file.Extensions
		s.sources["extensions"] = "file"
	}
}

func (s *Settings) applyEnvConfig() {
	if val := os.Getenv("PGHOST"); val != "" {
		s.Host = val
		s.sources["host"] = "environment"
	}
	if val := os.Getenv("PGPORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			s.Port = i
			s.sources["port"] = "environment"
		}
	}
	if val := os.Getenv("POSTGRES_USER"); val != "" {
		s.AdminUser = val
		s.sources["admin_user"] = "environment"
	}
	if val := os.Getenv("POSTGRES_PASSWORD"); val != "" {
		s.AdminPassword = val
		s.sources["admin_password"] = "environment"
	}
	if val := os.Getenv("PGSSLMODE"); val != "" {
		s.SSLMode = val
		s.sources["sslmode"] = "environment"
	}
	if val := os.Getenv("TUFFY_DATABASE"); val != "" {
		s.Database = val
		s.sources["database"] = "environment"
	}
	if val := os.Getenv("TUFFY_OWNER"); val != "" {
		s.Owner = val
		s.sources["owner"] = "environment"
	}
	if val := os.Getenv("TUFFY_OWNER_PASSWORD"); val != "" {
		s.OwnerPassword = val
		s.sources["owner_password"] = "environment"
	}
	if val := os.Getenv("TUFFY_EXTENSIONS"); val != "" {
		s.Extensions = splitAndTrim(val)
		s.sources["extensions"] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (s *Settings) ConfigFilePath() string {
	return s.configFilePath
}

// Source returns the source of a configuration attribute
func (s *Settings) Source(name string) string {
	if s.sources == nil {
		return "default"
	}
	if src, ok := s.sources[name]; ok {
		return src
	}
	return "default"
}

// Validate validates the configuration
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}

	for _, name := range []string{s.AdminUser, s.Database, s.Owner} {
		if !identifierRgx.MatchString(name) {
			return fmt.Errorf("invalid identifier: %s", name)
		}
	}

	for _, ext := range s.Extensions {
		if !identifierRgx.MatchString(ext) {
			return fmt.Errorf("invalid extension name: %s", ext)
		}
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (s *Settings) Attributes() []Attribute {
	return []Attribute{
		{Name: "host", Value: s.Host, Source: s.Source("host")},
		{Name: "port", Value: strconv.Itoa(s.Port), Source: s.Source("port")},
		{Name: "admin_user", Value: s.AdminUser, Source: s.Source("admin_user")},
		{Name: "admin_password", Value: maskSecret(s.AdminPassword), Source: s.Source("admin_password")},
		{Name: "sslmode", Value: s.SSLMode, Source: s.Source("sslmode")},
		{Name: "database", Value: s.Database, Source: s.Source("database")},
		{Name: "owner", Value: s.Owner, Source: s.Source("owner")},
		{Name: "owner_password", Value: maskSecret(s.OwnerPassword), Source: s.Source("owner_password")},
		{Name: "extensions", Value: strings.Join(s.Extensions, ","), Source: s.Source("extensions")},
	}
}

// FormatText returns a text representation of the configuration
func (s *Settings) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", s.configFilePath))
	sb.WriteString(fmt.Sprintf("%-20s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-20s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range s.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-20s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (s *Settings) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": s.configFilePath,
		"attributes":  s.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	return "****"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
