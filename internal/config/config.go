// Package config provides configuration management for go-msgboard.
package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Default web settings
	DefaultListenPort        = 8000
	DefaultWebRoot           = "web"
	DefaultStorageDir        = "storage" // relative to the web root unless absolute
	DefaultDataFile          = "data.json"
	DefaultMaxPostSize       = 32 * 1024 // 'N' KB max form body
	DefaultMetricsPath       = "/metrics"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

var (
	ErrInvalidPort = errors.New("invalid listen port")
	ErrNoWebRoot   = errors.New("web root is required")
	ErrTLSFiles    = errors.New("SSL enabled but cert_file or key_file not specified in config")
)

// MainConfig holds the main configuration for go-msgboard
type MainConfig struct {
	Web     *WebConfig    `json:"web"`
	Storage StorageConfig `json:"storage"`

	AppVersion string `json:"app_version"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenAddr        string        `json:"listen_addr"` // host part, empty listens on all interfaces
	ListenPort        int           `json:"listen_port"`
	SSL               bool          `json:"ssl"`
	CertFile          string        `json:"cert_file,omitempty"`
	KeyFile           string        `json:"key_file,omitempty"`
	WebRoot           string        `json:"web_root"`      // html fixtures, templates/ and static files
	MaxPostSize       int64         `json:"max_post_size"` // bytes accepted in a form body
	MetricsPath       string        `json:"metrics_path"`  // empty disables the metrics route
	ReadHeaderTimeout time.Duration `json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	PprofAddr         string        `json:"pprof_addr,omitempty"`
	Debug             bool          `json:"debug"` // gin debug mode
}

// StorageConfig holds message store configuration
type StorageConfig struct {
	Dir      string `json:"dir"`       // storage directory, created on startup
	DataFile string `json:"data_file"` // file name inside Dir
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion,
		Web: &WebConfig{
			ListenPort:        DefaultListenPort,
			SSL:               false,
			WebRoot:           DefaultWebRoot,
			MaxPostSize:       DefaultMaxPostSize,
			MetricsPath:       DefaultMetricsPath,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
		},
		Storage: StorageConfig{
			Dir:      DefaultStorageDir,
			DataFile: DefaultDataFile,
		},
	}
	log.Printf("MainConfig initialized (web root: %s, port: %d)", maincfg.Web.WebRoot, maincfg.Web.ListenPort)
	return maincfg
}

// Addr returns the host:port the web server listens on
func (w *WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.ListenAddr, w.ListenPort)
}

// Validate checks the web settings before the server is started
func (w *WebConfig) Validate() error {
	if w.ListenPort < 1 || w.ListenPort > 65535 {
		return fmt.Errorf("%w: %d (must be between 1 and 65535)", ErrInvalidPort, w.ListenPort)
	}
	if strings.TrimSpace(w.WebRoot) == "" {
		return ErrNoWebRoot
	}
	if w.SSL && (w.CertFile == "" || w.KeyFile == "") {
		return ErrTLSFiles
	}
	if w.MetricsPath != "" && !strings.HasPrefix(w.MetricsPath, "/") {
		w.MetricsPath = "/" + w.MetricsPath
	}
	return nil
}

// DataFilePath resolves the backing file of the message store.
// A relative storage dir is taken relative to the web root.
func (c *MainConfig) DataFilePath() string {
	dir := c.Storage.Dir
	if dir == "" {
		dir = DefaultStorageDir
	}
	if !filepath.IsAbs(dir) && c.Web != nil {
		dir = filepath.Join(c.Web.WebRoot, dir)
	}
	name := c.Storage.DataFile
	if name == "" {
		name = DefaultDataFile
	}
	return filepath.Join(dir, name)
}
