package queue

import "embed"

// Migrations holds the schema for the Postgres broker, applied with
// pg.Migrate at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS
