package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/oselight/stripdeck/pkg/logger"
)

// StaticFileHandler serves the web UI from a directory on disk, falling
// back to index.html for unknown paths so client-side routing works
type StaticFileHandler struct {
	dir    string
	fs     http.Handler
	logger *logger.Logger
}

// NewStaticFileHandler creates a static file handler rooted at dir
func NewStaticFileHandler(dir string, log *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		dir:    dir,
		fs:     http.FileServer(http.Dir(dir)),
		logger: log.Named("static"),
	}
}

func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.dir == "" {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.dir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		h.fs.ServeHTTP(w, r)
		return
	}

	index := filepath.Join(h.dir, "index.html")
	if _, err := os.Stat(index); err != nil || strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}
