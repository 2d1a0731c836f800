// Package web provides the HTTP server and web interface for go-msgboard
package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route names used for logging and the request metrics
const (
	routeIndex       = "index"
	routeMessage     = "message"
	routeRead        = "read"
	routeMetrics     = "metrics"
	routeStatic      = "static"
	routeNotFound    = "notfound"
	routeSubmit      = "submit"
	routeUnsupported = "unsupported"
)

// route is one row of the routing table
type route struct {
	method  string
	path    string
	name    string
	handler gin.HandlerFunc
}

// routes returns the routing table in registration order.
// Everything not listed here is handled by dispatchFallback.
func (s *WebServer) routes() []route {
	table := []route{
		{method: http.MethodGet, path: "/", name: routeIndex, handler: s.homePage},
		{method: http.MethodGet, path: "/message", name: routeMessage, handler: s.messagePage},
		{method: http.MethodGet, path: "/read", name: routeRead, handler: s.readPage},
	}
	if s.Config.MetricsPath != "" {
		table = append(table, route{method: http.MethodGet, path: s.Config.MetricsPath, name: routeMetrics, handler: s.metrics.handler()})
	}
	return table
}

// setupRoutes registers the routing table and the fallback
func (s *WebServer) setupRoutes() {
	seen := make(map[string]bool)
	for _, r := range s.routes() {
		key := r.method + " " + r.path
		if seen[key] {
			log.Printf("[WEB]: Skipping duplicate route %s (%s)", key, r.name)
			continue
		}
		seen[key] = true
		s.Router.Handle(r.method, r.path, named(r.name), r.handler)
	}
	// No method-not-allowed handling: a POST to "/read" must reach the fallback
	s.Router.HandleMethodNotAllowed = false
	s.Router.NoRoute(s.dispatchFallback)
}

// dispatchFallback handles every request the routing table does not match.
// Any POST is a message submission, any other GET is a static file lookup.
func (s *WebServer) dispatchFallback(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodPost:
		setRoute(c, routeSubmit)
		s.messageSubmit(c)
	case http.MethodGet:
		s.staticFile(c)
	default:
		setRoute(c, routeUnsupported)
		c.String(http.StatusNotImplemented, "Unsupported method (%s)", c.Request.Method)
	}
}

// named tags the request with its route name
func named(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setRoute(c, name)
		c.Next()
	}
}

const routeContextKey = "msgboard.route"

func setRoute(c *gin.Context, name string) {
	c.Set(routeContextKey, name)
}

func routeOf(c *gin.Context) string {
	if name := c.GetString(routeContextKey); name != "" {
		return name
	}
	return routeNotFound
}
