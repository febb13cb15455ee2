// Package output writes generated modules.
//
// Writes are atomic: content goes to a temp file in the target directory
// which is then renamed over the target, so a failed write never leaves a
// partially written module behind. Byte-identical content is not
// rewritten; callers that embed volatile text compare before writing.
package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
)

// Sink accepts a generated module for a target path.
type Sink interface {
	// Write stores text at path and reports whether the stored content
	// changed.
	Write(path string, text []byte) (changed bool, err error)
}

// Reader reads back what a sink stored. A missing target returns an error
// satisfying errors.Is(err, fs.ErrNotExist).
type Reader interface {
	Read(path string) ([]byte, error)
}

// FileSink writes modules to the local filesystem.
type FileSink struct {
	// Perm is the mode of newly created files. Defaults to 0o644.
	Perm fs.FileMode
}

var (
	_ Sink   = FileSink{}
	_ Reader = FileSink{}
)

// Write writes text to path unless the file already holds it.
func (s FileSink) Write(path string, text []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, text) {
		return false, nil
	}

	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, errors.Wrapf(err, "creating output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(text); err != nil {
		_ = tmp.Close()
		cleanup()
		return false, errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return false, errors.Wrapf(err, "writing %s", path)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return false, errors.Wrapf(err, "setting mode of %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return false, errors.Wrapf(err, "renaming into %s", path)
	}
	return true, nil
}

// Read returns the current content of path.
func (FileSink) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MemorySink keeps modules in memory. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	// Writes counts calls to Write that changed content.
	writes int
}

var (
	_ Sink   = (*MemorySink)(nil)
	_ Reader = (*MemorySink)(nil)
)

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Write stores a copy of text.
func (s *MemorySink) Write(path string, text []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.files[path]; ok && bytes.Equal(existing, text) {
		return false, nil
	}
	s.files[path] = bytes.Clone(text)
	s.writes++
	return true, nil
}

// Read returns a copy of the stored content.
func (s *MemorySink) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, errors.Wrapf(fs.ErrNotExist, "%s", path)
	}
	return bytes.Clone(data), nil
}

// Writes returns the number of writes that changed content.
func (s *MemorySink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Digest returns the SHA-256 hex digest of data.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
