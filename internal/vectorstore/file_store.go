package vectorstore

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ciq-assistant/internal/contextutil"
	"ciq-assistant/internal/document"
)

const (
	currentFile = "CURRENT"
	indexFile   = "index.gob"
	docsFile    = "docs.json"

	// retainedVersions is how many of the newest versions survive a build,
	// so a reader that resolved CURRENT just before a rebuild can still load
	// the version it named.
	retainedVersions = 3
)

// indexArtifact is the gob-encoded vector half of a persisted index.
type indexArtifact struct {
	Dimension int
	Vectors   [][]float32
}

type cachedIndex struct {
	version string
	index   *FlatIndex
}

// FileStore persists each collection as immutable version directories under
// root/<collection>/ and a CURRENT file naming the active version. Builds
// write a new version and swap CURRENT with a rename, so Open never observes
// a partially written index.
type FileStore struct {
	root string

	mu    sync.RWMutex
	cache map[document.Collection]cachedIndex

	// buildMu serializes builds of the same store.
	buildMu sync.Mutex
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	return &FileStore{
		root:  dir,
		cache: make(map[document.Collection]cachedIndex),
	}, nil
}

// Build writes a new version and makes it current.
func (s *FileStore) Build(ctx context.Context, collection document.Collection, docs []document.Document, vectors [][]float32) error {
	logger := contextutil.LoggerFromContext(ctx).With("collection", collection)

	dim, err := validateBuild(docs, vectors)
	if err != nil {
		return err
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	collDir := filepath.Join(s.root, string(collection))
	if _, err := readCurrent(collDir); err != nil && !errors.Is(err, ErrIndexNotFound) {
		return err
	}

	if len(docs) == 0 {
		if err := os.Remove(filepath.Join(collDir, currentFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to clear current version: %w", err)
		}
		s.forget(collection)
		s.prune(ctx, collDir, 0)
		logger.InfoContext(ctx, "collection is empty, index removed")
		return nil
	}

	version := fmt.Sprintf("%019d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
	versionDir := filepath.Join(collDir, version)
	if err := os.MkdirAll(versionDir, 0755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}

	if err := writeArtifacts(versionDir, dim, docs, vectors); err != nil {
		_ = os.RemoveAll(versionDir)
		return err
	}

	if err := writeCurrent(collDir, version); err != nil {
		_ = os.RemoveAll(versionDir)
		return err
	}

	s.prune(ctx, collDir, retainedVersions)
	logger.InfoContext(ctx, "index built", "version", version, "documents", len(docs), "dimension", dim)
	return nil
}

// Open loads the current version, reusing the in-memory copy when the
// version has not changed.
func (s *FileStore) Open(ctx context.Context, collection document.Collection) (Index, error) {
	collDir := filepath.Join(s.root, string(collection))
	version, err := readCurrent(collDir)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", collection, err)
	}

	s.mu.RLock()
	cached, ok := s.cache[collection]
	s.mu.RUnlock()
	if ok && cached.version == version {
		return cached.index, nil
	}

	idx, err := readArtifacts(filepath.Join(collDir, version))
	if err != nil {
		return nil, fmt.Errorf("collection %s version %s: %w", collection, version, err)
	}

	s.mu.Lock()
	s.cache[collection] = cachedIndex{version: version, index: idx}
	s.mu.Unlock()

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "index loaded",
		"collection", collection,
		"version", version,
		"documents", idx.Len(),
	)
	return idx, nil
}

func (s *FileStore) forget(collection document.Collection) {
	s.mu.Lock()
	delete(s.cache, collection)
	s.mu.Unlock()
}

// prune removes all but the newest keep version directories. Version names
// sort by build time.
func (s *FileStore) prune(ctx context.Context, collDir string, keep int) {
	entries, err := os.ReadDir(collDir)
	if err != nil {
		return
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) <= keep {
		return
	}
	sort.Strings(versions)
	for _, name := range versions[:len(versions)-keep] {
		if err := os.RemoveAll(filepath.Join(collDir, name)); err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to prune index version", "path", name, "error", err)
		}
	}
}

// Versions lists the version directories of a collection, oldest first.
func (s *FileStore) Versions(collection document.Collection) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(collection)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func readCurrent(collDir string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(collDir, currentFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrIndexNotFound
		}
		return "", fmt.Errorf("failed to read current version: %w", err)
	}
	version := strings.TrimSpace(string(raw))
	if version == "" || strings.ContainsAny(version, `/\`) {
		return "", fmt.Errorf("%w: invalid current version %q", ErrIndexCorrupt, version)
	}
	return version, nil
}

func writeCurrent(collDir, version string) error {
	tmp, err := os.CreateTemp(collDir, "."+currentFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create pointer temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(version + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write pointer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync pointer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close pointer: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(collDir, currentFile)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to swap current version: %w", err)
	}
	return nil
}

func writeArtifacts(dir string, dim int, docs []document.Document, vectors [][]float32) error {
	if err := writeFile(filepath.Join(dir, indexFile), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(indexArtifact{Dimension: dim, Vectors: vectors})
	}); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := writeFile(filepath.Join(dir, docsFile), func(f *os.File) error {
		return json.NewEncoder(f).Encode(docs)
	}); err != nil {
		return fmt.Errorf("failed to write documents: %w", err)
	}
	return nil
}

func writeFile(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readArtifacts(dir string) (*FlatIndex, error) {
	idxFile, err := os.Open(filepath.Join(dir, indexFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer func() {
		_ = idxFile.Close()
	}()

	var artifact indexArtifact
	if err := gob.NewDecoder(idxFile).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("%w: failed to decode index: %v", ErrIndexCorrupt, err)
	}

	docsRaw, err := os.ReadFile(filepath.Join(dir, docsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	var docs []document.Document
	if err := json.Unmarshal(docsRaw, &docs); err != nil {
		return nil, fmt.Errorf("%w: failed to decode documents: %v", ErrIndexCorrupt, err)
	}

	return NewFlatIndex(artifact.Dimension, artifact.Vectors, docs)
}
