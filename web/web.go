package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Static returns the browser client rooted at static/, so index.html is
// served for "/".
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
