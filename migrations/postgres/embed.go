// Package postgres embebe las migraciones SQL del esquema.
package postgres

import "embed"

//go:embed *.sql
var Files embed.FS
