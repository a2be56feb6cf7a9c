// Package files reads whole text files for searching.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Sentinel errors returned by the readers.
var (
	// ErrIO is the parent of every failure to obtain file content.
	ErrIO = errors.New("cannot read file")

	// ErrInvalidEncoding is returned when content is not valid UTF-8.
	ErrInvalidEncoding = fmt.Errorf("%w: stream did not contain valid UTF-8", ErrIO)

	// ErrBinary is returned when content looks like binary data.
	ErrBinary = fmt.Errorf("%w: binary content", ErrIO)

	// ErrIsDirectory is returned when the path names a directory.
	ErrIsDirectory = fmt.Errorf("%w: path is a directory", ErrIO)

	// ErrTooLarge is returned when a file exceeds the configured size limit.
	ErrTooLarge = fmt.Errorf("%w: file too large", ErrIO)

	// ErrInvalidPath is returned for absolute or escaping relative paths.
	ErrInvalidPath = fmt.Errorf("%w: invalid path", ErrIO)
)

// Read returns the full content of the named file. The underlying os error
// stays in the chain, so errors.Is(err, fs.ErrNotExist) works.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}
	return string(data), nil
}

// Reader reads files confined to a root directory.
type Reader struct {
	root        string
	maxFileSize int64
}

// NewReader creates a Reader for files under root no larger than maxFileSize bytes.
// The root is stored with symlinks resolved.
func NewReader(root string, maxFileSize int64) (*Reader, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", ErrIO, abs)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return &Reader{
		root:        resolved,
		maxFileSize: maxFileSize,
	}, nil
}

// Root returns the absolute root directory.
func (r *Reader) Root() string {
	return r.root
}

// Read returns the content of relPath, which must stay within the root once
// symlinks are resolved. The file is opened through an os.Root, so a link
// swapped in after the check still cannot escape.
func (r *Reader) Read(relPath string) (string, error) {
	if err := ValidatePath(relPath); err != nil {
		return "", err
	}

	rel, err := r.resolve(relPath)
	if err != nil {
		return "", err
	}

	root, err := os.OpenRoot(r.root)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() { _ = root.Close() }()

	f, err := root.Open(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if info.IsDir() {
		return "", ErrIsDirectory
	}
	if info.Size() > r.maxFileSize {
		return "", fmt.Errorf("%w (%.2f KB, maximum is %.2f KB)", ErrTooLarge,
			float64(info.Size())/1024, float64(r.maxFileSize)/1024)
	}

	data, err := readLimited(f, r.maxFileSize)
	if err != nil {
		return "", err
	}
	if IsBinary(data) {
		return "", ErrBinary
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrInvalidEncoding, relPath)
	}
	return string(data), nil
}

// resolve follows symlinks in relPath and returns the target relative to the root.
func (r *Reader) resolve(relPath string) (string, error) {
	resolved, err := filepath.EvalSymlinks(filepath.Join(r.root, filepath.Clean(relPath)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	rel, err := filepath.Rel(r.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path resolves outside the root directory", ErrInvalidPath)
	}
	return rel, nil
}

// readLimited reads up to limit bytes and fails with ErrTooLarge if rd holds more.
func readLimited(rd io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (more than %.2f KB)", ErrTooLarge, float64(limit)/1024)
	}
	return data, nil
}

// ValidatePath rejects empty, absolute and parent-traversing paths.
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}

	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) {
		return fmt.Errorf("%w: absolute paths are not allowed", ErrInvalidPath)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.HasPrefix(cleaned, `..\`) {
		return fmt.Errorf("%w: path traversal is not allowed", ErrInvalidPath)
	}
	return nil
}

// IsBinary reports whether content has a null byte in its first 512 bytes,
// the same heuristic git uses.
func IsBinary(content []byte) bool {
	checkLen := min(len(content), 512)

	for i := range checkLen {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
