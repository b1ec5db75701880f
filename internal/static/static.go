// Package static serves the embedded watch page.
package static

import (
	"embed"
	"net/http"
)

//go:embed static
var base embed.FS

// NewHandler serves the files under /static/ and sends / to the watch page.
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.FileServerFS(base))
	mux.Handle("GET /{$}", http.RedirectHandler("/static/watch.html", http.StatusFound))
	return mux
}
