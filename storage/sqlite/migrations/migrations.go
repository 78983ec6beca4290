package migrations

import "embed"

// FS holds the ordered SQL migrations for the save store.
//
//go:embed *.sql
var FS embed.FS
