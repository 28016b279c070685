package static

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed dist
var dist embed.FS

func sub() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}

// Has reports whether the embedded build contains the asset at urlPath.
func Has(urlPath string) bool {
	fsys, err := sub()
	if err != nil {
		return false
	}
	p := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if p == "" {
		return false
	}
	info, err := fs.Stat(fsys, p)
	return err == nil && !info.IsDir()
}

func Handler() http.Handler {
	fsys, err := sub()
	if err != nil {
		return http.NotFoundHandler()
	}
	fileServer := http.FileServer(http.FS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Serve static assets directly by extension or assets path
		if strings.HasPrefix(r.URL.Path, "/assets/") || isAsset(r.URL.Path) {
			fileServer.ServeHTTP(w, r)
			return
		}
		// Always serve index.html for app routes to avoid directory redirects
		b, err := fs.ReadFile(fsys, "index.html")
		if err != nil {
			http.Error(w, "index not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}

func isAsset(p string) bool {
	switch path.Ext(p) {
	case ".js", ".css", ".svg", ".ico", ".png", ".jpg", ".gif", ".mp3", ".txt", ".map":
		return true
	}
	return false
}
