package features

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/object-recognition-mcp/internal/fsutil"
)

// ErrDatabaseUnavailable is returned when a feature database is missing,
// unreadable or holds no valid rows.
var ErrDatabaseUnavailable = errors.New("feature database unavailable")

// Fingerprint identifies one version of a backing file.
type Fingerprint struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether both fingerprints describe the same file version.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}

// Database is an immutable snapshot of one feature file.
type Database struct {
	path        string
	fingerprint Fingerprint
	entries     []Entry
	skipped     int
}

// Path returns the file the snapshot was read from.
func (d *Database) Path() string { return d.path }

// Fingerprint returns the file version the snapshot reflects.
func (d *Database) Fingerprint() Fingerprint { return d.fingerprint }

// Len returns the number of valid rows.
func (d *Database) Len() int { return len(d.entries) }

// Skipped returns the number of malformed rows dropped on load.
func (d *Database) Skipped() int { return d.skipped }

// Entries returns the rows in file order. The slice is shared and must not
// be modified.
func (d *Database) Entries() []Entry { return d.entries }

// Dimensions returns the distinct vector lengths present, ascending.
func (d *Database) Dimensions() []int {
	seen := make(map[int]bool)
	var dims []int
	for _, e := range d.entries {
		if !seen[e.Dim()] {
			seen[e.Dim()] = true
			dims = append(dims, e.Dim())
		}
	}
	sort.Ints(dims)
	return dims
}

// Labels returns the distinct labels, sorted.
func (d *Database) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, e := range d.entries {
		if !seen[e.Label] {
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Option configures a Cache or Matcher.
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

// WithLogger sets the logger used for reloads and skipped rows.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func buildOptions(opts []Option) options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := options{log: discard}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Cache keeps the most recent snapshot of each feature file.
//
// Load serves the cached snapshot while the file's fingerprint is unchanged
// and rereads the whole file otherwise. A reload builds a new Database and
// swaps it in under the write lock, so readers holding an older snapshot are
// unaffected.
type Cache struct {
	fs  fsutil.FileSystem
	log logrus.FieldLogger

	mu  sync.RWMutex
	dbs map[string]*Database
}

// NewCache creates an empty cache reading through fsys.
func NewCache(fsys fsutil.FileSystem, opts ...Option) *Cache {
	o := buildOptions(opts)
	return &Cache{
		fs:  fsys,
		log: o.log,
		dbs: make(map[string]*Database),
	}
}

// Load returns the current snapshot of the database at path.
//
// # Errors
//
//   - ErrDatabaseUnavailable (wrapping the cause) if the file is missing,
//     unreadable or has no valid rows
func (c *Cache) Load(path string) (*Database, error) {
	key := filepath.Clean(path)

	info, err := c.fs.Stat(key)
	if err != nil {
		c.forget(key)
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}
	if info.IsDir() {
		c.forget(key)
		return nil, fmt.Errorf("%w: %s is a directory", ErrDatabaseUnavailable, path)
	}
	fp := Fingerprint{ModTime: info.ModTime(), Size: info.Size()}

	c.mu.RLock()
	db, ok := c.dbs[key]
	c.mu.RUnlock()
	if ok && db.fingerprint.Equal(fp) {
		return db, nil
	}

	db, err = c.read(key, fp)
	if err != nil {
		c.forget(key)
		return nil, err
	}

	c.mu.Lock()
	c.dbs[key] = db
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"path":    key,
		"rows":    db.Len(),
		"skipped": db.skipped,
		"size":    fp.Size,
	}).Info("feature database loaded")
	return db, nil
}

func (c *Cache) read(path string, fp Fingerprint) (*Database, error) {
	data, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}

	entries, skipped, err := ParseEntries(bytes.NewReader(data), c.log.WithField("path", path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s has no valid rows", ErrDatabaseUnavailable, path)
	}

	return &Database{
		path:        path,
		fingerprint: fp,
		entries:     entries,
		skipped:     skipped,
	}, nil
}

// forget drops a snapshot whose file can no longer be served.
func (c *Cache) forget(key string) {
	c.mu.Lock()
	delete(c.dbs, key)
	c.mu.Unlock()
}

// Cached reports whether a snapshot for path is held.
func (c *Cache) Cached(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.dbs[filepath.Clean(path)]
	return ok
}
