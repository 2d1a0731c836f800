// Package storage persists guestbook messages in a single JSON file
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-while/go-msgboard/internal/models"
)

// ErrNoPath is returned when a store is created without a backing file
var ErrNoPath = errors.New("storage: data file path is required")

// DataFileName is the name of the backing file inside the storage directory
const DataFileName = "data.json"

// MessageStore loads and saves the whole posts mapping from one JSON file.
// Nothing is cached between calls: every Load reads the file and every
// Append rewrites it completely.
type MessageStore struct {
	path string
	now  func() time.Time

	// mux serializes read-modify-write cycles of Append
	mux sync.Mutex
}

// Option configures a MessageStore
type Option func(*MessageStore)

// WithClock overrides the time source used to derive message keys
func WithClock(now func() time.Time) Option {
	return func(s *MessageStore) {
		s.now = now
	}
}

// NewMessageStore returns a store backed by path and creates its parent
// directory if it does not exist yet.
func NewMessageStore(path string, opts ...Option) (*MessageStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	s := &MessageStore{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file path
func (s *MessageStore) Path() string {
	return s.path
}

// Load reads the backing file. A missing, unreadable or unparsable file
// yields an empty mapping; Load never fails.
func (s *MessageStore) Load() models.Posts {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.load()
}

func (s *MessageStore) load() models.Posts {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[STORE]: read %s: %v (using empty store)", s.path, err)
		}
		return models.Posts{}
	}
	var posts models.Posts
	if err := json.Unmarshal(data, &posts); err != nil {
		log.Printf("[STORE]: parse %s: %v (using empty store)", s.path, err)
		return models.Posts{}
	}
	if posts == nil {
		// file contained a JSON null
		return models.Posts{}
	}
	return posts
}

// Append stores a new message under the current epoch-seconds key and
// rewrites the backing file. It returns the key the message was stored at.
func (s *MessageStore) Append(username, message string) (string, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	posts := s.load()
	key := strconv.FormatInt(s.now().Unix(), 10)
	posts[key] = models.Message{Username: username, Message: message}
	if err := s.save(posts); err != nil {
		return "", err
	}
	return key, nil
}

// Save overwrites the backing file with posts
func (s *MessageStore) Save(posts models.Posts) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.save(posts)
}

func (s *MessageStore) save(posts models.Posts) error {
	if posts == nil {
		posts = models.Posts{}
	}
	data, err := Encode(posts)
	if err != nil {
		return err
	}
	// truncate and write in place, no temp file
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Encode renders posts as indented JSON. Non-ASCII text and HTML
// characters are written verbatim.
func Encode(posts models.Posts) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(posts); err != nil {
		return nil, fmt.Errorf("encode posts: %w", err)
	}
	return buf.Bytes(), nil
}
