package assets

import (
	"embed"
	"io/fs"
)

//go:embed static/*.js static/*.css
var embeddedStatic embed.FS

// StaticFS exposes the bundled editor script and stylesheet so applications
// can serve them without a build step.
//
// Typical mount:
//
//	mux.Handle(assets.DefaultPrefix+"/",
//	  http.StripPrefix(assets.DefaultPrefix+"/",
//	    http.FileServerFS(assets.StaticFS()),
//	  ),
//	)
func StaticFS() fs.FS {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		return embeddedStatic
	}
	return sub
}
