package templates

import "embed"

// FS holds the built-in pages of the development server.
//
//go:embed *.tpl
var FS embed.FS
