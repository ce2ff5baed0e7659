// Package main implements tuffyctl, the PostgreSQL provisioner for the
// Tuffy MLN engine.
//
// Tuffy keeps its grounding state in PostgreSQL and expects a database owned
// by a superuser role with the intarray and intagg extensions enabled.
// tuffyctl creates that state from scratch, tears it down, and reports on it.
//
// # Quick Start
//
//	# Wait for the server to accept connections
//	tuffyctl wait
//
//	# Drop and recreate the tuffy database, role and extensions
//	tuffyctl db provision
//
//	# Verify the result
//	tuffyctl db status
//
// # Environment Variables
//
//   - POSTGRES_USER / POSTGRES_PASSWORD: administrative credentials
//   - PGHOST / PGPORT / PGSSLMODE: server location (default localhost:5432)
//   - DATABASE_URL: full admin connection URL, overrides the above
//   - TUFFY_DATABASE / TUFFY_OWNER / TUFFY_OWNER_PASSWORD: provisioned objects
//   - TUFFY_EXTENSIONS: comma-separated extension list
//   - TUFFY_CONFIG_PATH: directory containing tuffy.yml
package main
