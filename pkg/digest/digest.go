// Package digest computes content digests of generated files so that lineage
// events can identify exactly which artifacts a step produced.
//
// Hashing is best-effort: a file that cannot be read yields a record without a
// digest instead of failing the pipeline step that asked for it.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ChunkSize is the read size used when streaming a file through the hash.
const ChunkSize = 64 * 1024

// Record pairs a file path with its hex SHA-256 digest. Digest is nil when the
// file could not be hashed.
type Record struct {
	Path   string  `json:"file"`
	Digest *string `json:"sha256"`
}

// HasDigest reports whether the file was hashed successfully.
func (r Record) HasDigest() bool { return r.Digest != nil }

// Hasher computes file digests, logging failures instead of returning them.
type Hasher struct {
	logger *slog.Logger
	open   func(name string) (io.ReadCloser, error)
}

// NewHasher creates a Hasher. A nil logger falls back to slog.Default().
func NewHasher(logger *slog.Logger) *Hasher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hasher{
		logger: logger,
		open: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
}

// Digest returns the hex SHA-256 of the file at path. On any I/O failure it
// logs a warning and returns ok=false.
func (h *Hasher) Digest(path string) (string, bool) {
	sum, err := h.hash(path)
	if err != nil {
		h.logger.Warn("could not compute file digest", "file", path, "error", err)
		return "", false
	}
	return sum, true
}

// Record hashes path and wraps the result in a Record.
func (h *Hasher) Record(path string) Record {
	rec := Record{Path: path}
	if sum, ok := h.Digest(path); ok {
		rec.Digest = &sum
	}
	return rec
}

func (h *Hasher) hash(path string) (string, error) {
	f, err := h.open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()
	return sum(f, path)
}

// HashFile computes the hex SHA-256 of the file at path, reading it in
// ChunkSize pieces so memory use does not grow with the file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()
	return sum(f, path)
}

func sum(r io.Reader, path string) (string, error) {
	hasher := sha256.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
