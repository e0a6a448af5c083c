// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contiene las migraciones del historial de snapshots.
// Formato de archivo: {version}_{name}.sql (ej: 0001_node_snapshots.sql).
// Cada archivo debe ser idempotente: se aplican en cada arranque.
//
//go:embed *.sql
var FS embed.FS
