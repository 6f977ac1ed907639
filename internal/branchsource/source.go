// Package branchsource reads task files from version-control branches
// without checking them out.
//
// Every operation is read-only apart from Fetch, which only updates
// remote-tracking refs. Ordinary failures (missing branch, missing path,
// unreadable file) come back as empty results. Only an environment that
// cannot be used at all (no git binary, not a repository) is reported,
// as ErrUnavailable, so callers can fall back to the working tree alone.
package branchsource

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUnavailable means version control cannot be used in this directory.
var ErrUnavailable = errors.New("version control unavailable")

// Branch is one branch tip.
type Branch struct {
	Name       string    `json:"name"`
	LastCommit time.Time `json:"last_commit"`
	IsRemote   bool      `json:"is_remote"`
}

// ShortName strips the remote prefix from a remote-tracking branch name,
// so "origin/feature" becomes "feature".
func (b Branch) ShortName() string {
	if !b.IsRemote {
		return b.Name
	}
	if _, short, ok := strings.Cut(b.Name, "/"); ok {
		return short
	}
	return b.Name
}

// Source is the read-only capability the aggregator needs from a
// version-control system. Paths are relative to the repository root.
type Source interface {
	// ListBranches returns local and remote-tracking branches whose last
	// commit is within sinceDays. sinceDays <= 0 disables the filter.
	ListBranches(ctx context.Context, sinceDays int) ([]Branch, error)
	// CurrentBranch returns the checked-out branch, or "" when HEAD is
	// detached.
	CurrentBranch(ctx context.Context) (string, error)
	// DefaultBranch returns the main branch name, or "" if none is found.
	DefaultBranch(ctx context.Context) string
	PathExists(ctx context.Context, branch, path string) bool
	// ListFiles returns the names of the files directly inside dir.
	ListFiles(ctx context.Context, branch, dir string) []string
	ReadFile(ctx context.Context, branch, path string) ([]byte, bool)
	FileLastChanged(ctx context.Context, branch, path string) (time.Time, bool)
	// Fetch updates remote-tracking refs from remote.
	Fetch(ctx context.Context, remote string) error
}
