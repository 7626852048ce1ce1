// Package db holds the schema migrations, embedded so the migrate command
// and integration tests do not depend on the working directory.
package db

import "embed"

// MigrationsDir is the directory inside Migrations that goose reads
const MigrationsDir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS
