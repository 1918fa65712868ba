package digest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner pairs every regular file directly inside a directory with its digest.
type Scanner struct {
	// Pattern, when set, is a doublestar pattern matched against entry names.
	Pattern string

	hasher *Hasher
}

// NewScanner creates a Scanner that hashes with a new Hasher.
func NewScanner(logger *slog.Logger) *Scanner {
	return &Scanner{hasher: NewHasher(logger)}
}

// NewScannerWithHasher creates a Scanner that reuses h.
func NewScannerWithHasher(h *Hasher) *Scanner {
	return &Scanner{hasher: h}
}

// Scan lists dir (non-recursively) and returns one Record per regular file,
// in directory-listing order. Subdirectories are skipped. Files that cannot
// be hashed are kept with a nil digest. Only a failure to list dir itself is
// returned as an error.
func (s *Scanner) Scan(dir string) ([]Record, error) {
	if s.Pattern != "" && !doublestar.ValidatePattern(s.Pattern) {
		return nil, fmt.Errorf("invalid scan pattern %q", s.Pattern)
	}

	d, err := os.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	// Unsorted on purpose; callers sort if they need a canonical order.
	entries, err := d.ReadDir(-1)
	d.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if s.Pattern != "" {
			if ok, _ := doublestar.Match(s.Pattern, entry.Name()); !ok {
				continue
			}
		}

		path := filepath.Join(dir, entry.Name())
		// Stat follows symlinks, so a link to a regular file counts as one.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		records = append(records, s.hasher.Record(path))
	}
	return records, nil
}
