package http

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed assets
var assetFS embed.FS

// Assets returns the static files of the host page
func Assets() http.FileSystem {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Root serves the editor host page
func (h *Handlers) Root(c *gin.Context) {
	page, err := assetFS.ReadFile("assets/index.html")
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
