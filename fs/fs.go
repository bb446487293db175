package appfs

import "embed"

// FS holds the files shipped inside the binary (SQL migrations).
//go:embed migrations/*.sql
var FS embed.FS
