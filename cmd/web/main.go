// Message board web server for go-msgboard
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-msgboard/internal/config"
	"github.com/go-while/go-msgboard/internal/storage"
	"github.com/go-while/go-msgboard/internal/web"
)

var (
	// command-line flags
	webport     int
	webroot     string
	storageDir  string
	webssl      bool
	webcertFile string
	webkeyFile  string
	maxPostSize int64
	metricsPath string
	pprofAddr   string
	debug       bool
)

var appVersion = "-unset-"

var Prof *prof.Profiler

func main() {
	config.AppVersion = appVersion

	flag.IntVar(&webport, "webport", 0, "Web server port (default: 8000)")
	flag.StringVar(&webroot, "webroot", "", "Directory with index.html, message.html, error.html, templates/ and static files (default: web)")
	flag.StringVar(&storageDir, "storagedir", "", "Directory of the message store, relative to -webroot unless absolute (default: storage)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.Int64Var(&maxPostSize, "maxpostsize", 0, "Maximum accepted form body in bytes (default: 32768)")
	flag.StringVar(&metricsPath, "metricspath", config.DefaultMetricsPath, "Path of the prometheus metrics route, empty disables it")
	flag.StringVar(&pprofAddr, "pprof", "", "Serve pprof on this address (e.g. :51111), empty disables it")
	flag.BoolVar(&debug, "debug", false, "Run gin in debug mode")
	flag.Parse()

	mainConfig := config.NewDefaultConfig()
	webConfig := mainConfig.Web
	log.Printf("Starting go-msgboard: Web Server (version: %s)", appVersion)

	// Override config with command-line flags if provided
	if webport > 0 {
		webConfig.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	} else {
		log.Printf("[WEB]: No port flag provided, using default: %d", webConfig.ListenPort)
	}
	if webroot != "" {
		webConfig.WebRoot = webroot
		log.Printf("[WEB]: Web root set: %s", webConfig.WebRoot)
	}
	if storageDir != "" {
		mainConfig.Storage.Dir = storageDir
		log.Printf("[WEB]: Storage dir set: %s", mainConfig.Storage.Dir)
	}
	if webssl {
		webConfig.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		webConfig.CertFile = webcertFile
		log.Printf("[WEB]: SSL cert file set: %s", webConfig.CertFile)
	}
	if webkeyFile != "" {
		webConfig.KeyFile = webkeyFile
		log.Printf("[WEB]: SSL key file set: %s", webConfig.KeyFile)
	}
	if maxPostSize > 0 {
		webConfig.MaxPostSize = maxPostSize
		log.Printf("[WEB]: Max post size set: %d bytes", webConfig.MaxPostSize)
	}
	webConfig.MetricsPath = metricsPath
	webConfig.PprofAddr = pprofAddr
	webConfig.Debug = debug

	if err := webConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid configuration: %v", err)
	}
	log.Printf("[WEB]: Using WEB configuration: %#v", webConfig)

	store, err := storage.NewMessageStore(mainConfig.DataFilePath())
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize message store: %v", err)
	}
	log.Printf("[WEB]: Message store at %s (%d messages)", store.Path(), len(store.Load()))

	renderer, err := web.LoadTemplates(filepath.Join(webConfig.WebRoot, "templates"))
	if err != nil {
		log.Fatalf("[WEB]: Failed to load templates: %v", err)
	}

	server, err := web.NewServer(store, renderer, webConfig)
	if err != nil {
		log.Fatalf("[WEB]: Failed to create web server: %v", err)
	}

	if webConfig.PprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(webConfig.PprofAddr)
		log.Printf("[WEB]: pprof listening on %s", webConfig.PprofAddr)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	protocol := "http"
	if webConfig.SSL {
		protocol = "https"
	}
	log.Printf("[WEB]: Starting go-msgboard web server on %s://localhost:%d", protocol, webConfig.ListenPort)

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			webServerErrChan <- err
		}
	}()

	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	select {
	case sig := <-sigChan:
		log.Printf("[WEB]: Received %s, initiating graceful shutdown...", sig)
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webConfig.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error during shutdown: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
}
