// Package templates embeds the default editor wrapper templates.
package templates

import "embed"

// FS holds inline.tpl, modal.tpl and modal_attrs.tpl.
//
//go:embed *.tpl
var FS embed.FS
