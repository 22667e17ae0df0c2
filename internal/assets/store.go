// Package assets serves the campaign email files and copies them into
// the public directory.
package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Security errors
var (
	ErrPathTraversal = errors.New("path traversal detected")
	ErrFileNotFound  = errors.New("file not found")
	ErrFileTooLarge  = errors.New("file exceeds size limit")
)

// MaxEmailSize is the largest email file read into memory (5 MB)
const MaxEmailSize = 5 * 1024 * 1024

// Store gives read access to files below the public directory
type Store interface {
	Path(relPath string) (string, error)
	Open(relPath string) (io.ReadCloser, error)
	ReadEmail(relPath string) (string, error)
}

// localStore implements Store using the local filesystem
type localStore struct {
	basePath string
}

// NewLocalStore creates a Store rooted at basePath. The directory does
// not have to exist yet; asset sync may create it later.
func NewLocalStore(basePath string) Store {
	return &localStore{basePath: basePath}
}

// validatePath ensures path is within basePath (prevents traversal)
func (s *localStore) validatePath(relPath string) (string, error) {
	// Clean the path
	cleanPath := filepath.Clean(relPath)

	// Prevent absolute paths
	if filepath.IsAbs(cleanPath) {
		return "", ErrPathTraversal
	}

	// Prevent path traversal. Names that merely contain ".." are fine.
	if hasParentSegment(cleanPath) {
		return "", ErrPathTraversal
	}

	fullPath := filepath.Join(s.basePath, cleanPath)

	// Get absolute paths for comparison
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	// Security check: ensure file is within allowed directory
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return absPath, nil
}

// hasParentSegment reports whether any path segment is "..", splitting on
// both separators so Windows-style input is caught on every platform.
func hasParentSegment(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// Path returns the absolute path of an existing regular file
func (s *localStore) Path(relPath string) (string, error) {
	fullPath, err := s.validatePath(relPath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrFileNotFound
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return "", ErrFileNotFound
	}
	return fullPath, nil
}

// Open opens a file by its path relative to the base
func (s *localStore) Open(relPath string) (io.ReadCloser, error) {
	fullPath, err := s.Path(relPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// ReadEmail reads a whole email file, refusing files over MaxEmailSize
func (s *localStore) ReadEmail(relPath string) (string, error) {
	f, err := s.Open(relPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxEmailSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxEmailSize {
		return "", ErrFileTooLarge
	}
	return string(data), nil
}
