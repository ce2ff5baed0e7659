// Package provision implements the catalog operations that prepare a
// PostgreSQL server for the Tuffy engine.
//
// A full run drops and recreates the target database, drops and recreates
// the owner role as LOGIN SUPERUSER NOINHERIT, grants it all privileges on
// the database, and enables the configured extensions (intarray and intagg
// by default). Statements execute in order and the first failure aborts the
// run, leaving the server in whatever state it reached.
//
// Inspect reports the current provisioning state of a server without
// modifying it.
package provision
