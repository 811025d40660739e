// Package appfs embeds the application's static files: database migrations,
// email templates and validation assets.
package appfs

import "embed"

//go:embed migrations all:templates assets
var FS embed.FS
