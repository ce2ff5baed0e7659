package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/linqs/tuffyctl/pkg/config"
)

// MaintenanceDatabase is the database used for catalog statements that
// cannot run inside the target database, such as DROP DATABASE.
const MaintenanceDatabase = "postgres"

// URLFor builds a connection URL for the given database using the admin
// credentials from settings. If DATABASE_URL is set in the environment it is
// used as the base, with only the database path swapped out.
func URLFor(settings *config.Settings, dbname string) (string, error) {
	if base := os.Getenv("DATABASE_URL"); base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		u.Path = "/" + dbname
		return u.String(), nil
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", settings.Host, settings.Port),
		Path:   "/" + dbname,
	}
	if settings.AdminPassword != "" {
		u.User = url.UserPassword(settings.AdminUser, settings.AdminPassword)
	} else {
		u.User = url.User(settings.AdminUser)
	}

	query := url.Values{}
	if settings.SSLMode != "" {
		query.Set("sslmode", settings.SSLMode)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// Open opens a database/sql connection to the given database as the admin
// user and verifies it with a ping.
func Open(settings *config.Settings, dbname string) (*sql.DB, error) {
	dbURL, err := URLFor(settings, dbname)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dbname, err)
	}

	return conn, nil
}

// Connect establishes a GORM connection to the given database. Used for
// catalog inspection queries.
func Connect(settings *config.Settings, dbname string) (*gorm.DB, error) {
	dbURL, err := URLFor(settings, dbname)
	if err != nil {
		return nil, err
	}

	// Default to silent logging unless TUFFY_LOG_LEVEL=debug is set
	logMode := logger.Silent
	if os.Getenv("TUFFY_LOG_LEVEL") == "debug" {
		logMode = logger.Info
	}

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			DSN:                  dbURL,
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return gormDB, nil
}
