// Package web provides the HTTP server and web interface for go-msgboard
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-msgboard/internal/config"
	"github.com/go-while/go-msgboard/internal/models"
)

// MessageStore is the persistence the handlers need
type MessageStore interface {
	Load() models.Posts
	Append(username, message string) (string, error)
}

// WebServer represents the web server
type WebServer struct {
	Store     MessageStore
	Router    *gin.Engine
	Config    *config.WebConfig
	StartTime time.Time // Track server start time for uptime calculations

	renderer Renderer
	root     *os.Root // web root, all file lookups are confined to it
	metrics  *webMetrics
	http     *http.Server
}

// NewServer creates a new web server instance serving files from the
// configured web root and rendering listings with renderer.
func NewServer(store MessageStore, renderer Renderer, webconfig *config.WebConfig) (*WebServer, error) {
	if store == nil || renderer == nil || webconfig == nil {
		return nil, errors.New("web: store, renderer and config are required")
	}
	root, err := os.OpenRoot(webconfig.WebRoot)
	if err != nil {
		return nil, fmt.Errorf("open web root: %w", err)
	}

	if webconfig.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		// Set Gin to release mode for production
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// "/read/" must reach the static fallback, not redirect to "/read"
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}

	server := &WebServer{
		Store:    store,
		Router:   router,
		Config:   webconfig,
		renderer: renderer,
		root:     root,
		metrics:  newWebMetrics(),
	}

	router.Use(gin.Recovery(), server.ApacheLogFormat(), server.metrics.middleware())
	router.Use(secure.New(secureConfig))

	server.setupRoutes()

	server.http = &http.Server{
		Addr:              webconfig.Addr(),
		Handler:           router,
		ReadHeaderTimeout: webconfig.ReadHeaderTimeout,
	}
	return server, nil
}

// Start starts the web server with SSL support if configured.
// It blocks until the server stops and returns http.ErrServerClosed after Shutdown.
func (s *WebServer) Start() error {
	s.StartTime = time.Now() // Set the start time for uptime calculations
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return config.ErrTLSFiles
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", s.http.Addr)
		return s.http.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	}
	log.Printf("[WEB]: Starting HTTP server on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown stops accepting connections, waits for in-flight requests
// until ctx is done and releases the web root.
func (s *WebServer) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.root.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// ServeHTTP lets the server be used directly as an http.Handler
func (s *WebServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// ApacheLogFormat logs every request in Apache combined log format
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}
