package git

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Client wraps git command execution in a working directory.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
}

// NewClient creates a new git client for the given working directory.
func NewClient(workDir string, logger *slog.Logger) *Client {
	return &Client{
		WorkDir: workDir,
		Logger:  logger,
	}
}

// IsInstalled reports whether the git binary is on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Run executes a raw git command in the working directory.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)

	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}

	return strings.TrimSpace(output), nil
}

// Init initializes a new git repository if one doesn't exist.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// IsRepo reports whether WorkDir is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	out, err := c.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// TopLevel returns the root directory of the work tree containing WorkDir.
func (c *Client) TopLevel(ctx context.Context) (string, error) {
	return c.Run(ctx, "rev-parse", "--show-toplevel")
}

// AddRemote configures a named remote.
func (c *Client) AddRemote(ctx context.Context, name, url string) error {
	_, err := c.Run(ctx, "remote", "add", name, url)
	return err
}

// Remotes lists the configured remote names in git's order.
func (c *Client) Remotes(ctx context.Context) ([]string, error) {
	out, err := c.Run(ctx, "remote")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Fields(out), nil
}

// RemoteURL returns the first URL configured for the named remote.
func (c *Client) RemoteURL(ctx context.Context, name string) (string, error) {
	return c.Run(ctx, "remote", "get-url", name)
}
