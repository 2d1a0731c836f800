// Package web provides the HTTP server and web interface for go-msgboard
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// homePage handles the "/" route
func (s *WebServer) homePage(c *gin.Context) {
	s.sendHTMLFile(c, indexPage, http.StatusOK)
}
