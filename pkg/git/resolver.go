package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"

	"github.com/aretw0/lineage/pkg/core"
)

// DefaultRemote is preferred when a repository has several remotes.
const DefaultRemote = "origin"

// Resolver implements core.RemoteResolver with the git CLI.
type Resolver struct {
	Logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{Logger: logger}
}

// RemoteURL returns the URL of the "origin" remote of the repository at path,
// or of its first remote when there is no origin. path must be the root of
// the work tree; a subdirectory of a larger checkout is not a repository of
// its own. A path that is not a repository, or a repository without remotes,
// yields "" and no error. Only a failure to run git itself is returned.
func (r *Resolver) RemoteURL(ctx context.Context, path string) (string, error) {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return "", nil
	}
	if !IsInstalled() {
		return "", fmt.Errorf("git: %w", exec.ErrNotFound)
	}

	client := NewClient(path, r.Logger)
	top, err := client.TopLevel(ctx)
	if err != nil || !samePath(top, path) {
		return "", nil
	}

	remotes, err := client.Remotes(ctx)
	if err != nil {
		return "", err
	}
	if len(remotes) == 0 {
		return "", nil
	}

	name := remotes[0]
	if slices.Contains(remotes, DefaultRemote) {
		name = DefaultRemote
	}
	return client.RemoteURL(ctx, name)
}

// samePath reports whether a and b name the same directory once made
// absolute and resolved through symlinks.
func samePath(a, b string) bool {
	return canonical(a) == canonical(b)
}

func canonical(path string) string {
	path = filepath.Clean(filepath.FromSlash(path))
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return path
}

var _ core.RemoteResolver = (*Resolver)(nil)
