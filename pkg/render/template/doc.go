// Package template defines the template engine seam used by the editor
// renderer and the CLI page layouts.
package template
