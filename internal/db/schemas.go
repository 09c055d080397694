package db

import "embed"

// sqlSchemas embeds the SQL migration files at compile time for portability.
//
//go:embed migrations/*.sql
var sqlSchemas embed.FS
