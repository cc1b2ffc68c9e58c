package appfs

import "embed"

// FS holds the SQL migrations and the email templates.
// all: keeps the underscore-prefixed layouts (_base.*).
//go:embed migrations all:templates
var FS embed.FS
