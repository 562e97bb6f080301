package api

import (
	"embed"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed static
var staticFS embed.FS

// SetupStaticRoutes sets up routes for serving the embedded chat page.
func SetupStaticRoutes(r *gin.Engine) {
	r.GET("/", ServeIndex)
	r.GET("/static/*filepath", func(c *gin.Context) {
		path := strings.TrimPrefix(c.Param("filepath"), "/")
		serveStaticFile(c, path)
	})
}

// ServeIndex serves the chat landing page.
func ServeIndex(c *gin.Context) {
	serveStaticFile(c, "index.html")
}

func serveStaticFile(c *gin.Context, filename string) {
	content, err := staticFS.ReadFile("static/" + filename)
	if err != nil {
		c.String(http.StatusNotFound, "File not found")
		return
	}

	contentType := "text/html; charset=utf-8"
	if strings.HasSuffix(filename, ".js") {
		contentType = "application/javascript"
	} else if strings.HasSuffix(filename, ".css") {
		contentType = "text/css"
	}

	c.Data(http.StatusOK, contentType, content)
}
