package web

import (
	"github.com/gin-gonic/gin"
)

// readPage handles the "/read" route: it renders every stored post.
// The store is loaded from disk on each request.
func (s *WebServer) readPage(c *gin.Context) {
	posts := s.Store.Load()
	s.renderTemplate(c, readTemplate, gin.H{
		"posts": posts,
	})
}
