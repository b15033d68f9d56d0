// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contiene las migraciones del directorio de usuarios, en orden lexical.
//
//go:embed *.sql
var FS embed.FS
