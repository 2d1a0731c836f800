package web

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-msgboard/internal/models"
)

// messagePage handles the "/message" route to display the posting form
func (s *WebServer) messagePage(c *gin.Context) {
	s.sendHTMLFile(c, messageForm, http.StatusOK)
}

// messageSubmit stores a posted message and redirects to the front page.
// It serves every POST regardless of the request path.
func (s *WebServer) messageSubmit(c *gin.Context) {
	if s.Config.MaxPostSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.Config.MaxPostSize)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.renderError(c, http.StatusRequestEntityTooLarge, "Message too large", err.Error())
			return
		}
		s.renderError(c, http.StatusBadRequest, "Failed to read form", err.Error())
		return
	}

	fields, err := parseForm(string(body))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, "Malformed form", err.Error())
		return
	}

	username, ok := fields["username"]
	if !ok {
		username = models.DefaultUsername
	}
	message := fields["message"]

	key, err := s.Store.Append(username, message)
	if err != nil {
		s.metrics.storeErrors.Inc()
		s.renderError(c, http.StatusInternalServerError, "Failed to save message", err.Error())
		return
	}
	s.metrics.saved.Inc()
	log.Printf("[WEB]: Saved message %s from %q", key, username)

	c.Redirect(http.StatusFound, "/")
}
