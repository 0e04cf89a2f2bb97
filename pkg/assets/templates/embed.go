package templates

import "embed"

//go:embed *.tpl
var FS embed.FS
