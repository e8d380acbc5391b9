package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// Well-known namespaces. Each one holds a single category of entries.
const (
	NamespaceLLM    = "llm"
	NamespaceParsed = "parsed"
	NamespacePDFs   = "pdfs"
	NamespaceSkills = "skills"
)

// DefaultNamespaces are created when a Store is constructed without an
// explicit namespace list.
var DefaultNamespaces = []string{NamespaceLLM, NamespaceParsed, NamespacePDFs, NamespaceSkills}

const (
	compressedExt = ".gz"
	tempPrefix    = ".tmp-"
)

// Common errors returned by the Store constructor and namespace validation.
var (
	ErrInvalidTTL       = errors.New("cache TTL must be positive")
	ErrInvalidNamespace = errors.New("invalid cache namespace")
)

// Config holds the settings for a Store.
type Config struct {
	// Dir is the root directory; each namespace is a subdirectory.
	Dir string
	// TTL is the maximum age of an entry since its last write.
	TTL time.Duration
	// NamespaceTTLs overrides TTL for individual namespaces.
	NamespaceTTLs map[string]time.Duration
	// Namespaces to create up front. Defaults to DefaultNamespaces.
	Namespaces []string
}

// Option customizes a Store.
type Option func(*Store)

// WithFs replaces the filesystem the store writes to. Tests use afero.NewMemMapFs.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) {
		s.fs = fs
	}
}

// WithClock replaces the time source used for entry ages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a file-backed, namespaced, TTL-expiring key/value store.
//
// Entries live at <dir>/<namespace>/<digest> (or <digest>.gz when compressed)
// and hold the JSON encoding of the stored value. Files are not locked:
// concurrent writers of the same key race and the last rename wins.
type Store struct {
	fs     afero.Fs
	dir    string
	ttl    time.Duration
	nsTTL  map[string]time.Duration
	now    func() time.Time
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore creates the cache directory and its namespaces and returns a Store.
func NewStore(cfg Config, logger *slog.Logger, opts ...Option) (*Store, error) {
	if cfg.TTL <= 0 {
		return nil, ErrInvalidTTL
	}
	for ns, ttl := range cfg.NamespaceTTLs {
		if ttl <= 0 {
			return nil, fmt.Errorf("%w: namespace %q", ErrInvalidTTL, ns)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		fs:     afero.NewOsFs(),
		dir:    cfg.Dir,
		ttl:    cfg.TTL,
		nsTTL:  make(map[string]time.Duration, len(cfg.NamespaceTTLs)),
		now:    time.Now,
		logger: logger.With("component", "cache_store"),
	}
	for ns, ttl := range cfg.NamespaceTTLs {
		s.nsTTL[ns] = ttl
	}
	for _, opt := range opts {
		opt(s)
	}

	namespaces := cfg.Namespaces
	if namespaces == nil {
		namespaces = DefaultNamespaces
	}
	for _, ns := range namespaces {
		if err := validateNamespace(ns); err != nil {
			return nil, err
		}
		if err := s.fs.MkdirAll(filepath.Join(s.dir, ns), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache namespace %q: %w", ns, err)
		}
	}

	return s, nil
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// TTL returns the expiry applied to entries of the given namespace.
func (s *Store) TTL(namespace string) time.Duration {
	if ttl, ok := s.nsTTL[namespace]; ok {
		return ttl
	}
	return s.ttl
}

// Get looks up keyMaterial in namespace and decodes the stored value into
// dest, which must be a non-nil pointer. It reports whether a fresh entry was
// found. Expired and unreadable entries are deleted and reported as misses.
func (s *Store) Get(namespace string, keyMaterial any, dest any) bool {
	if err := validateNamespace(namespace); err != nil {
		s.logger.Error("cache get rejected", "namespace", namespace, "error", err)
		s.misses.Add(1)
		return false
	}

	key := ComputeKey(keyMaterial)
	for _, compressed := range []bool{true, false} {
		path := s.entryPath(namespace, key, compressed)

		info, err := s.fs.Stat(path)
		if err != nil {
			continue
		}

		if s.expired(namespace, info) {
			s.logger.Debug("cache entry expired", "namespace", namespace, "key", key)
			s.remove(path)
			continue
		}

		if err := s.read(path, compressed, dest); err != nil {
			var invalid *json.InvalidUnmarshalError
			if errors.As(err, &invalid) {
				// The caller passed a bad destination; the entry itself is fine.
				s.logger.Error("cache get called with invalid destination",
					"namespace", namespace, "error", err)
				s.misses.Add(1)
				return false
			}
			s.logger.Warn("cache read error, removing entry",
				"namespace", namespace, "key", key, "error", err)
			s.remove(path)
			continue
		}

		s.hits.Add(1)
		s.logger.Debug("cache hit", "namespace", namespace, "key", key)
		return true
	}

	s.misses.Add(1)
	s.logger.Debug("cache miss", "namespace", namespace, "key", key)
	return false
}

// Set stores value under keyMaterial in namespace, gzip-compressed when
// compressed is true. It reports whether the entry was written; failures are
// logged and never returned, so callers proceed without caching.
func (s *Store) Set(namespace string, keyMaterial any, value any, compressed bool) bool {
	if err := validateNamespace(namespace); err != nil {
		s.logger.Error("cache set rejected", "namespace", namespace, "error", err)
		return false
	}

	key := ComputeKey(keyMaterial)
	if err := s.write(namespace, key, value, compressed); err != nil {
		s.logger.Warn("cache write error", "namespace", namespace, "key", key, "error", err)
		return false
	}

	// Only one form of an entry may exist, otherwise a stale sibling could
	// shadow the fresh write on the next Get.
	sibling := s.entryPath(namespace, key, !compressed)
	if err := s.fs.Remove(sibling); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove stale cache entry", "path", sibling, "error", err)
	}

	s.logger.Debug("cache entry stored",
		"namespace", namespace, "key", key, "compressed", compressed)
	return true
}

// ClearExpired removes every entry, across all namespaces, whose age exceeds
// its namespace TTL. It returns the number of entries removed and any removal
// errors combined.
func (s *Store) ClearExpired() (int, error) {
	removed, err := s.sweep(func(namespace string, info os.FileInfo) bool {
		return s.expired(namespace, info)
	})
	s.logger.Info("cleared expired cache entries", "removed", removed)
	return removed, err
}

// ClearAll unconditionally removes every entry across all namespaces.
func (s *Store) ClearAll() (int, error) {
	removed, err := s.sweep(func(string, os.FileInfo) bool { return true })
	s.logger.Info("cleared all cache entries", "removed", removed)
	return removed, err
}

// Namespaces lists the namespace directories currently present.
func (s *Store) Namespaces() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cache namespaces: %w", err)
	}

	namespaces := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			namespaces = append(namespaces, info.Name())
		}
	}
	return namespaces, nil
}

func (s *Store) sweep(match func(namespace string, info os.FileInfo) bool) (int, error) {
	namespaces, err := s.Namespaces()
	if err != nil {
		return 0, err
	}

	var errs error
	removed := 0
	for _, ns := range namespaces {
		entries, err := s.entries(ns)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, info := range entries {
			if !match(ns, info) {
				continue
			}
			if err := s.fs.Remove(filepath.Join(s.dir, ns, info.Name())); err != nil {
				if !os.IsNotExist(err) {
					errs = multierr.Append(errs, fmt.Errorf("failed to remove cache entry: %w", err))
				}
				continue
			}
			removed++
		}
	}

	return removed, errs
}

// entries lists the regular entry files of a namespace, skipping in-flight
// temporary files.
func (s *Store) entries(namespace string) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(s.fs, filepath.Join(s.dir, namespace))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache namespace %q: %w", namespace, err)
	}

	files := infos[:0]
	for _, info := range infos {
		if !info.Mode().IsRegular() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		files = append(files, info)
	}
	return files, nil
}

func (s *Store) entryPath(namespace, key string, compressed bool) string {
	name := key
	if compressed {
		name += compressedExt
	}
	return filepath.Join(s.dir, namespace, name)
}

func (s *Store) expired(namespace string, info os.FileInfo) bool {
	return s.now().Sub(info.ModTime()) > s.TTL(namespace)
}

func (s *Store) remove(path string) {
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove cache entry", "path", path, "error", err)
	}
}

func (s *Store) read(path string, compressed bool, dest any) error {
	f, err := s.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("invalid gzip header: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// write encodes value into a temporary file beside the final path and renames
// it into place, so readers never observe a partially written entry.
func (s *Store) write(namespace, key string, value any, compressed bool) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	if compressed {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("failed to compress value: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to compress value: %w", err)
		}
		payload = buf.Bytes()
	}

	dir := filepath.Join(s.dir, namespace)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create namespace directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close entry: %w", err)
	}

	path := s.entryPath(namespace, key, compressed)
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move entry into place: %w", err)
	}

	now := s.now()
	if err := s.fs.Chtimes(path, now, now); err != nil {
		s.logger.Debug("failed to stamp cache entry", "path", path, "error", err)
	}
	return nil
}

func validateNamespace(namespace string) error {
	if namespace == "" || namespace == "." || namespace == ".." ||
		strings.ContainsAny(namespace, `/\`) || strings.HasPrefix(namespace, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	return nil
}
