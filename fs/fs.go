// Package appfs embeds the SQL migrations and the email templates into the binaries.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates assets
var FS embed.FS
