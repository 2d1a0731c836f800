package web

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-while/go-msgboard/internal/config"
	"github.com/go-while/go-msgboard/internal/models"
	"github.com/go-while/go-msgboard/internal/storage"
)

const testReadTemplate = `<ul>{{range $key, $post := .posts}}<li data-key="{{$key}}" title="{{postTime $key}}">{{$post.Username}}: {{$post.Message}}</li>{{else}}<li>empty</li>{{end}}</ul>`

// writeWebRoot builds a web root below a fresh temp dir and returns its path.
// A secret.txt is placed next to (outside of) the web root.
func writeWebRoot(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "web")
	files := map[string]string{
		"index.html":            "<h1>front page</h1>",
		"message.html":          "<form>message form</form>",
		"error.html":            "<h1>error page</h1>",
		"templates/read.html":   testReadTemplate,
		"static/style.css":      "body { color: red; }",
		"notes.unknownext12345": "plain notes",
		"guide.txt":             "read me",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.txt"), []byte("top secret"), 0o644))
	return root
}

func testConfig(root string) *config.WebConfig {
	cfg := *config.NewDefaultConfig().Web
	cfg.WebRoot = root
	return &cfg
}

type testEnv struct {
	server *WebServer
	store  *storage.MessageStore
	root   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := writeWebRoot(t)

	var (
		clockMux sync.Mutex
		sec      int64 = 1700000000
	)
	store, err := storage.NewMessageStore(filepath.Join(root, "storage", storage.DataFileName),
		storage.WithClock(func() time.Time {
			clockMux.Lock()
			defer clockMux.Unlock()
			sec++
			return time.Unix(sec, 0)
		}))
	require.NoError(t, err)

	renderer, err := LoadTemplates(filepath.Join(root, "templates"))
	require.NoError(t, err)

	server, err := NewServer(store, renderer, testConfig(root))
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.root.Close() })

	return &testEnv{server: server, store: store, root: root}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func TestFixedPages(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		target string
		want   string
	}{
		{target: "/", want: "front page"},
		{target: "/?utm=1", want: "front page"},
		{target: "/message", want: "message form"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/", "")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestReadPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/read", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<li>empty</li>")

	_, err := env.store.Append("Alice", "Hello")
	require.NoError(t, err)
	_, err = env.store.Append("Bob", "<script>alert(1)</script>")
	require.NoError(t, err)
	_, err = env.store.Append("Zoë", "Grüße")
	require.NoError(t, err)

	rec = env.do(http.MethodGet, "/read", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	body := rec.Body.String()
	assert.Contains(t, body, "Alice: Hello")
	assert.Contains(t, body, "Zoë: Grüße")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, body, "<script>")

	// listing is in key order, oldest first
	assert.Less(t, strings.Index(body, "Alice"), strings.Index(body, "Bob"))
	assert.Less(t, strings.Index(body, "Bob"), strings.Index(body, "Zoë"))
}

func TestReadPageTemplateFailure(t *testing.T) {
	root := writeWebRoot(t)
	store, err := storage.NewMessageStore(filepath.Join(root, "storage", storage.DataFileName))
	require.NoError(t, err)
	server, err := NewServer(store, failingRenderer{}, testConfig(root))
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.root.Close() })

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/read", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "error page")
}

func TestStaticFiles(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		target    string
		wantType  string
		wantBody  string
		wantCode  int
		wantError bool
	}{
		{target: "/static/style.css", wantType: "text/css", wantBody: "color: red", wantCode: http.StatusOK},
		{target: "/guide.txt", wantType: "text/plain", wantBody: "read me", wantCode: http.StatusOK},
		{target: "/notes.unknownext12345", wantType: "text/plain", wantBody: "plain notes", wantCode: http.StatusOK},
		{target: "/does-not-exist.xyz", wantCode: http.StatusNotFound, wantError: true},
		{target: "/static", wantCode: http.StatusNotFound, wantError: true},
		{target: "/static/", wantCode: http.StatusNotFound, wantError: true},
		{target: "/read/", wantCode: http.StatusNotFound, wantError: true},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantError {
				assert.Contains(t, rec.Body.String(), "error page")
				assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
				return
			}
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.wantType),
				"content type %q", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestStaticTraversalRejected(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/../secret.txt",
		"/static/../../secret.txt",
		"/%2e%2e/secret.txt",
	} {
		t.Run(target, func(t *testing.T) {
			rec := env.do(http.MethodGet, target, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.NotContains(t, rec.Body.String(), "top secret")
		})
	}
}

func TestSubmitRedirectsAndStores(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/", "/message", "/read", "/any/other/path"} {
		t.Run(target, func(t *testing.T) {
			rec := env.do(http.MethodPost, target, "username=Alice&message=Hello")
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
			assert.True(t, containsPost(env.store.Load(), "Alice", "Hello"))
		})
	}
	assert.Len(t, env.store.Load(), 4)
}

func TestSubmitDecodesFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/message", "username=J%C3%BCrgen+M&message=1%2B1%3D2+%26+more")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, containsPost(env.store.Load(), "Jürgen M", "1+1=2 & more"))
}

func TestSubmitDefaults(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantUsername string
		wantMessage  string
	}{
		{name: "no username", body: "message=hi", wantUsername: models.DefaultUsername, wantMessage: "hi"},
		{name: "no message", body: "username=bob", wantUsername: "bob", wantMessage: ""},
		{name: "empty body", body: "", wantUsername: models.DefaultUsername, wantMessage: ""},
		{name: "empty username kept", body: "username=&message=x", wantUsername: "", wantMessage: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(http.MethodPost, "/", tt.body)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.True(t, containsPost(env.store.Load(), tt.wantUsername, tt.wantMessage))
		})
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{"justtext", "username=a&broken", "message=%zz"} {
		t.Run(body, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error page")
		})
	}
	assert.Empty(t, env.store.Load())
}

func TestSubmitTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.server.Config.MaxPostSize = 16

	rec := env.do(http.MethodPost, "/", "username=a&message="+strings.Repeat("x", 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.store.Load())
}

func TestSubmitStoreFailure(t *testing.T) {
	root := writeWebRoot(t)
	renderer, err := LoadTemplates(filepath.Join(root, "templates"))
	require.NoError(t, err)
	server, err := NewServer(failingStore{}, renderer, testConfig(root))
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.root.Close() })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=a&message=b"))
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// the server keeps serving after a failed write
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnsupportedMethod(t *testing.T) {
	env := newTestEnv(t)

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := env.do(method, "/", "")
		assert.Equal(t, http.StatusNotImplemented, rec.Code, method)
	}
}

func TestMissingFixture(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Remove(filepath.Join(env.root, "index.html")))

	rec := env.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusOK), rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusFound, env.do(http.MethodPost, "/", "username=a&message=b").Code)
	require.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/nope", "").Code)

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "msgboard_messages_saved_total 1")
	assert.Contains(t, body, `msgboard_http_requests_total{code="302",route="submit"} 1`)
	assert.Contains(t, body, `msgboard_http_requests_total{code="404",route="notfound"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	root := writeWebRoot(t)
	store, err := storage.NewMessageStore(filepath.Join(root, "storage", storage.DataFileName))
	require.NoError(t, err)
	renderer, err := LoadTemplates(filepath.Join(root, "templates"))
	require.NoError(t, err)
	cfg := testConfig(root)
	cfg.MetricsPath = ""
	server, err := NewServer(store, renderer, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.root.Close() })

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServerMissingRoot(t *testing.T) {
	store, err := storage.NewMessageStore(filepath.Join(t.TempDir(), storage.DataFileName))
	require.NoError(t, err)
	_, err = NewServer(store, failingRenderer{}, testConfig(filepath.Join(t.TempDir(), "missing")))
	assert.Error(t, err)
}

func TestPostTime(t *testing.T) {
	assert.Equal(t, "2023-11-14 22:13:20", postTime("1700000000"))
	assert.Equal(t, "not-a-number", postTime("not-a-number"))
}

func containsPost(posts models.Posts, username, message string) bool {
	for _, p := range posts {
		if p.Username == username && p.Message == message {
			return true
		}
	}
	return false
}

type failingRenderer struct{}

func (failingRenderer) Render(io.Writer, string, any) error {
	return errors.New("template exploded")
}

type failingStore struct{}

func (failingStore) Load() models.Posts { return models.Posts{} }

func (failingStore) Append(string, string) (string, error) {
	return "", errors.New("disk full")
}
