// Package migrations embute os arquivos .sql aplicados por internal/migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
