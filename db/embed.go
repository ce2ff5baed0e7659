// Package db carries the embedded SQL migrations for tuffyctl's
// bookkeeping schema.
package db

import "embed"

//go:embed migrations
var Migrations embed.FS
