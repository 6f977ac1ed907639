package branchsource

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"backlog-lite/internal/clock"
)

// Git implements Source over the git CLI. Every command targets the
// repository through "git -C <dir>" and reads objects with "<ref>:./path"
// revisions, so the working tree is never touched.
type Git struct {
	dir    string
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Git source.
type Option func(*Git)

// WithClock sets the time source used for the branch recency window.
func WithClock(c clock.Clock) Option {
	return func(g *Git) { g.clock = c }
}

// WithLogger sets the logger used for failed git commands.
func WithLogger(l *slog.Logger) Option {
	return func(g *Git) { g.logger = l }
}

// NewGit returns a Source for the repository containing dir.
func NewGit(dir string, opts ...Option) *Git {
	g := &Git{dir: dir, clock: clock.Real(), logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dir returns the directory commands run in.
func (g *Git) Dir() string { return g.dir }

// run executes git and returns stdout. Stderr is included in the error.
func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", g.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), g.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// output runs git and returns trimmed stdout, logging failures at debug.
func (g *Git) output(ctx context.Context, args ...string) (string, bool) {
	out, err := g.run(ctx, args...)
	if err != nil {
		g.logger.Debug("git command failed", "error", err)
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

// Check reports ErrUnavailable when git is missing or dir is not inside
// a repository.
func (g *Git) Check(ctx context.Context) error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := g.run(ctx, "rev-parse", "--git-dir"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// revision addresses path on branch relative to the command directory.
func revision(branch, p string) string {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "." {
		return branch + ":./"
	}
	return branch + ":./" + p
}

func (g *Git) ListBranches(ctx context.Context, sinceDays int) ([]Branch, error) {
	if err := g.Check(ctx); err != nil {
		return nil, err
	}
	out, ok := g.output(ctx, "for-each-ref",
		"--format=%(refname)%09%(committerdate:unix)",
		"refs/heads", "refs/remotes")
	if !ok {
		return nil, nil
	}

	var cutoff time.Time
	if sinceDays > 0 {
		cutoff = g.clock.Now().AddDate(0, 0, -sinceDays)
	}

	var branches []Branch
	for _, line := range strings.Split(out, "\n") {
		ref, stamp, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		b, ok := branchFromRef(ref)
		if !ok {
			continue
		}
		if secs, err := strconv.ParseInt(strings.TrimSpace(stamp), 10, 64); err == nil {
			b.LastCommit = time.Unix(secs, 0)
		}
		if !cutoff.IsZero() && b.LastCommit.Before(cutoff) {
			continue
		}
		branches = append(branches, b)
	}
	sort.SliceStable(branches, func(i, j int) bool {
		return branches[i].LastCommit.After(branches[j].LastCommit)
	})
	return branches, nil
}

func branchFromRef(ref string) (Branch, bool) {
	if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok {
		return Branch{Name: name}, true
	}
	if name, ok := strings.CutPrefix(ref, "refs/remotes/"); ok {
		if strings.HasSuffix(name, "/HEAD") || !strings.Contains(name, "/") {
			return Branch{}, false
		}
		return Branch{Name: name, IsRemote: true}, true
	}
	return Branch{}, false
}

func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	if err := g.Check(ctx); err != nil {
		return "", err
	}
	name, ok := g.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if !ok || name == "HEAD" {
		return "", nil
	}
	return name, nil
}

func (g *Git) DefaultBranch(ctx context.Context) string {
	if ref, ok := g.output(ctx, "symbolic-ref", "--short", "refs/remotes/origin/HEAD"); ok && ref != "" {
		return strings.TrimPrefix(ref, "origin/")
	}
	for _, candidate := range []string{"main", "master"} {
		if _, ok := g.output(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+candidate); ok {
			return candidate
		}
	}
	return ""
}

func (g *Git) PathExists(ctx context.Context, branch, p string) bool {
	_, ok := g.output(ctx, "cat-file", "-e", revision(branch, p))
	return ok
}

func (g *Git) ListFiles(ctx context.Context, branch, dir string) []string {
	out, err := g.run(ctx, "ls-tree", "-z", "--name-only", revision(branch, dir))
	if err != nil {
		g.logger.Debug("git command failed", "error", err)
		return nil
	}
	var names []string
	for _, name := range strings.Split(string(out), "\x00") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (g *Git) ReadFile(ctx context.Context, branch, p string) ([]byte, bool) {
	out, err := g.run(ctx, "show", revision(branch, p))
	if err != nil {
		g.logger.Debug("git command failed", "error", err)
		return nil, false
	}
	return out, true
}

func (g *Git) FileLastChanged(ctx context.Context, branch, p string) (time.Time, bool) {
	out, ok := g.output(ctx, "log", "-1", "--format=%ct", branch, "--", p)
	if !ok || out == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

func (g *Git) Fetch(ctx context.Context, remote string) error {
	if remote == "" {
		remote = "origin"
	}
	_, err := g.run(ctx, "fetch", "--prune", "--quiet", remote)
	return err
}
