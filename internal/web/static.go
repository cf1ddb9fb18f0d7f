// ABOUTME: Serves the embedded stylesheet and other static assets
// ABOUTME: Assets are unhashed, so clients revalidate on every load

package web

import (
	"io/fs"
	"net/http"
)

// staticHandler serves files under static/ at their path relative to it,
// e.g. /css/app.css.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create static sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})
}
