package web

import (
	"bytes"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Fixed pages served from the web root
const (
	indexPage   = "index.html"
	messageForm = "message.html"
	errorPage   = "error.html"

	readTemplate = "read.html"
)

const (
	contentTypeHTML    = "text/html; charset=utf-8"
	defaultContentType = "text/plain"
)

// Renderer produces markup for a named template
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// TemplateRenderer renders templates parsed once at startup
type TemplateRenderer struct {
	templates *template.Template
}

// templateFuncs are available to every listing template
var templateFuncs = template.FuncMap{
	"postTime": postTime,
}

// LoadTemplates parses every *.html file in dir
func LoadTemplates(dir string) (*TemplateRenderer, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// NewTemplateRenderer wraps already parsed templates
func NewTemplateRenderer(tmpl *template.Template) *TemplateRenderer {
	return &TemplateRenderer{templates: tmpl}
}

// Render executes the named template into w
func (r *TemplateRenderer) Render(w io.Writer, name string, data any) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// postTime formats a post key as a UTC timestamp, unknown keys are returned as is
func postTime(key string) string {
	sec, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return key
	}
	return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04:05")
}

// sendHTMLFile serves one of the fixed pages from the web root with status
func (s *WebServer) sendHTMLFile(c *gin.Context, name string, status int) {
	content, err := fs.ReadFile(s.root.FS(), name)
	if err != nil {
		log.Printf("[WEB]: Error reading page %s: %v", name, err)
		c.String(status, "%s", http.StatusText(status))
		return
	}
	c.Data(status, contentTypeHTML, content)
}

// renderTemplate renders name with data. The output is buffered so that a
// failing template turns into an error page instead of a partial response.
func (s *WebServer) renderTemplate(c *gin.Context, name string, data any) {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, data); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, buf.Bytes())
}

// renderError logs the failure and answers with the error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	log.Printf("[WEB]: Error %d: %s - %s", statusCode, message, errstring)
	s.sendHTMLFile(c, errorPage, statusCode)
}

// staticFile serves the request path as a file below the web root
func (s *WebServer) staticFile(c *gin.Context) {
	name := strings.TrimPrefix(c.Request.URL.Path, "/")

	f, err := s.root.Open(name)
	if err != nil {
		setRoute(c, routeNotFound)
		if !errors.Is(err, fs.ErrNotExist) {
			// escapes from the root end up here too
			log.Printf("[WEB]: Rejected static lookup %q: %v", name, err)
		}
		s.sendHTMLFile(c, errorPage, http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		setRoute(c, routeNotFound)
		s.sendHTMLFile(c, errorPage, http.StatusNotFound)
		return
	}

	setRoute(c, routeStatic)
	c.DataFromReader(http.StatusOK, info.Size(), contentType(name), f, nil)
}

// contentType guesses the MIME type from the file extension
func contentType(name string) string {
	if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
		return ctype
	}
	return defaultContentType
}
