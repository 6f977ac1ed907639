// Package aggregate merges the tasks seen on several branches into one
// collection with a single record per task id.
//
// A run selects branches, loads each branch's tasks directory through a
// branchsource.Source, groups every observation by id and keeps one
// winner per group. Branch loads run concurrently; grouping starts only
// after all of them have finished and walks the branches in selection
// order, so the result does not depend on scheduling.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"backlog-lite/internal/branchsource"
	"backlog-lite/internal/ordinal"
	"backlog-lite/internal/task"
	"backlog-lite/internal/taskfile"
)

// Strategy picks the winner among observations of the same task.
type Strategy string

const (
	// MostRecent keeps the copy with the latest change.
	MostRecent Strategy = "most_recent"
	// MostProgressed keeps the copy whose status is furthest along the
	// configured status order.
	MostProgressed Strategy = "most_progressed"
)

// ParseStrategy validates a strategy name. Empty means MostRecent.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", MostRecent:
		return MostRecent, nil
	case MostProgressed:
		return MostProgressed, nil
	}
	return "", fmt.Errorf("unknown resolution strategy %q (want %s or %s)", s, MostRecent, MostProgressed)
}

// LocalLoader returns the tasks of the working tree, with LastModified set
// from the files. It stands in for the current branch.
type LocalLoader func(ctx context.Context) ([]*task.Task, error)

// Options configure an Aggregator.
type Options struct {
	// TasksDir is the tasks directory relative to the repository root.
	TasksDir string
	// SinceDays is the branch recency window. Zero means DefaultSinceDays.
	SinceDays int
	Strategy  Strategy
	// Statuses lists statuses from least to most complete.
	Statuses []string
	// Fetch refreshes remote-tracking branches before listing them.
	Fetch  bool
	Remote string
	// Concurrency bounds parallel branch loads. Zero means
	// DefaultConcurrency.
	Concurrency int
	Logger      *slog.Logger
}

const (
	DefaultSinceDays   = 30
	DefaultConcurrency = 4
	DefaultTasksDir    = "backlog/tasks"
)

// Aggregator merges tasks across branches.
type Aggregator struct {
	source branchsource.Source
	local  LocalLoader
	opts   Options
}

// New returns an Aggregator. source may be nil, in which case Run
// returns the local tasks alone.
func New(source branchsource.Source, local LocalLoader, opts Options) *Aggregator {
	if opts.TasksDir == "" {
		opts.TasksDir = DefaultTasksDir
	}
	if opts.SinceDays == 0 {
		opts.SinceDays = DefaultSinceDays
	}
	if opts.Strategy == "" {
		opts.Strategy = MostRecent
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Aggregator{source: source, local: local, opts: opts}
}

// Selection is the outcome of branch selection.
type Selection struct {
	// Current is the checked-out branch, "" when HEAD is detached.
	Current string
	// Default is the detected main branch.
	Default string
	// Branches are in tie-break order: current, main, then by last
	// commit, newest first.
	Branches []branchsource.Branch
}

// Others returns the selected branches except the current one.
func (s Selection) Others() []branchsource.Branch {
	var out []branchsource.Branch
	for _, b := range s.Branches {
		if s.Current != "" && b.Name == s.Current && !b.IsRemote {
			continue
		}
		out = append(out, b)
	}
	return out
}

// SelectBranches lists the branches a run reads. Branches inside the
// recency window are kept, as are the current and main branches whatever
// their age. A remote branch is dropped when a local branch of the same
// short name is selected.
func (a *Aggregator) SelectBranches(ctx context.Context) (Selection, error) {
	if a.source == nil {
		return Selection{}, branchsource.ErrUnavailable
	}
	current, err := a.source.CurrentBranch(ctx)
	if err != nil {
		return Selection{}, err
	}
	def := a.source.DefaultBranch(ctx)

	recent, err := a.source.ListBranches(ctx, a.opts.SinceDays)
	if err != nil {
		return Selection{}, err
	}
	if !containsLocal(recent, current) || !containsBranch(recent, def) {
		all, err := a.source.ListBranches(ctx, 0)
		if err != nil {
			return Selection{}, err
		}
		for _, b := range all {
			if (b.Name == current && !b.IsRemote) || b.ShortName() == def {
				if !containsExact(recent, b) {
					recent = append(recent, b)
				}
			}
		}
	}

	locals := make(map[string]bool)
	for _, b := range recent {
		if !b.IsRemote {
			locals[b.Name] = true
		}
	}

	sel := Selection{Current: current, Default: def}
	var first, main, rest []branchsource.Branch
	for _, b := range recent {
		if b.IsRemote && locals[b.ShortName()] {
			continue
		}
		switch {
		case current != "" && b.Name == current && !b.IsRemote:
			first = append(first, b)
		case def != "" && b.ShortName() == def && len(main) == 0:
			main = append(main, b)
		default:
			rest = append(rest, b)
		}
	}
	sortByRecency(rest)
	sel.Branches = append(append(first, main...), rest...)
	return sel, nil
}

func containsLocal(branches []branchsource.Branch, name string) bool {
	if name == "" {
		return true
	}
	for _, b := range branches {
		if b.Name == name && !b.IsRemote {
			return true
		}
	}
	return false
}

func containsBranch(branches []branchsource.Branch, short string) bool {
	if short == "" {
		return true
	}
	for _, b := range branches {
		if b.ShortName() == short {
			return true
		}
	}
	return false
}

func containsExact(branches []branchsource.Branch, want branchsource.Branch) bool {
	for _, b := range branches {
		if b.Name == want.Name && b.IsRemote == want.IsRemote {
			return true
		}
	}
	return false
}

func sortByRecency(branches []branchsource.Branch) {
	// Insertion sort keeps equal timestamps in listing order.
	for i := 1; i < len(branches); i++ {
		for j := i; j > 0 && branches[j].LastCommit.After(branches[j-1].LastCommit); j-- {
			branches[j], branches[j-1] = branches[j-1], branches[j]
		}
	}
}

// Run returns the merged task collection. When version control is
// unavailable it returns the local tasks alone without an error. The only
// errors are a failing local load and cancellation of ctx.
func (a *Aggregator) Run(ctx context.Context) ([]*task.Task, error) {
	local, err := a.local(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading local tasks: %w", err)
	}

	if a.source != nil && a.opts.Fetch {
		if err := a.source.Fetch(ctx, a.opts.Remote); err != nil {
			a.opts.Logger.Warn("fetch failed, using existing remote refs", "remote", a.opts.Remote, "error", err)
		}
	}

	sel, err := a.SelectBranches(ctx)
	if err != nil {
		if errors.Is(err, branchsource.ErrUnavailable) {
			a.opts.Logger.Info("version control unavailable, using local tasks only", "error", err)
		} else {
			a.opts.Logger.Warn("branch selection failed, using local tasks only", "error", err)
		}
		for _, t := range local {
			t.Source = task.SourceLocal
		}
		ordinal.Sort(local)
		return local, nil
	}

	for _, t := range local {
		t.Source = task.SourceLocal
		t.Branch = sel.Current
	}
	if err := a.dateCommitted(ctx, sel.Current, local); err != nil {
		return nil, err
	}

	localByID := make(map[string]*task.Task, len(local))
	for _, t := range local {
		localByID[t.ID] = t
	}

	others := sel.Others()
	loaded := make([][]*task.Task, len(others))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, b := range others {
		i, b := i, b
		g.Go(func() error {
			tasks, err := a.loadBranch(gctx, b, localByID)
			loaded[i] = tasks
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	observations := append([][]*task.Task{local}, loaded...)
	merged := Merge(observations, a.opts.Strategy, a.opts.Statuses)
	ordinal.Sort(merged)
	return merged, nil
}

// dateCommitted dates each local record whose file matches the committed
// copy on the current branch with the time that copy last changed. Files
// with uncommitted edits, and untracked files, keep their mtime.
func (a *Aggregator) dateCommitted(ctx context.Context, current string, local []*task.Task) error {
	if current == "" {
		return nil
	}
	for _, t := range local {
		if err := ctx.Err(); err != nil {
			return err
		}
		if t.FilePath == "" || t.ContentHash == "" {
			continue
		}
		p := path.Join(a.opts.TasksDir, filepath.Base(t.FilePath))
		changed, ok := a.source.FileLastChanged(ctx, current, p)
		if !ok {
			continue
		}
		committed, ok := a.source.ReadFile(ctx, current, p)
		if !ok || taskfile.Hash(committed) != t.ContentHash {
			continue
		}
		t.LastModified = changed
	}
	return nil
}

// loadBranch parses the tasks directory of one branch. A branch without
// the directory contributes nothing. Unreadable and unparseable files are
// logged and skipped; only cancellation is returned as an error.
func (a *Aggregator) loadBranch(ctx context.Context, b branchsource.Branch, local map[string]*task.Task) ([]*task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := a.opts.Logger.With("branch", b.Name)
	if !a.source.PathExists(ctx, b.Name, a.opts.TasksDir) {
		logger.Debug("branch has no tasks directory", "dir", a.opts.TasksDir)
		return nil, nil
	}

	var tasks []*task.Task
	for _, name := range a.source.ListFiles(ctx, b.Name, a.opts.TasksDir) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		p := path.Join(a.opts.TasksDir, name)

		modified, ok := a.source.FileLastChanged(ctx, b.Name, p)
		if !ok {
			modified = b.LastCommit
		}
		if a.opts.Strategy == MostRecent {
			if l, ok := local[taskfile.IDFromFilename(name)]; ok && !l.LastModified.IsZero() && !modified.IsZero() && !l.LastModified.Before(modified) {
				logger.Debug("local copy is at least as fresh, skipping read", "path", p)
				continue
			}
		}

		content, ok := a.source.ReadFile(ctx, b.Name, p)
		if !ok {
			logger.Warn("could not read task file", "path", p)
			continue
		}
		t, ok := taskfile.Parse(content, p)
		if !ok {
			logger.Warn("skipping file that is not a task", "path", p)
			continue
		}
		t.Source = task.SourceLocalBranch
		t.Branch = b.Name
		t.LastModified = modified
		t.Folder = task.FolderTasks
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Merge groups observations by task id and resolves each group with
// strategy. observations holds one slice per branch in tie-break order;
// the result keeps first-seen id order.
func Merge(observations [][]*task.Task, strategy Strategy, statuses []string) []*task.Task {
	groups := make(map[string][]*task.Task)
	var order []string
	for _, tasks := range observations {
		for _, t := range tasks {
			if _, seen := groups[t.ID]; !seen {
				order = append(order, t.ID)
			}
			groups[t.ID] = append(groups[t.ID], t)
		}
	}

	merged := make([]*task.Task, 0, len(order))
	for _, id := range order {
		merged = append(merged, Resolve(groups[id], strategy, statuses))
	}
	return merged
}

// Resolve picks one task from a non-empty group. Members are compared
// left to right with a strict comparison, so the first one seen wins ties.
func Resolve(group []*task.Task, strategy Strategy, statuses []string) *task.Task {
	best := group[0]
	for _, candidate := range group[1:] {
		switch strategy {
		case MostProgressed:
			if StatusRank(candidate.Status, statuses) > StatusRank(best.Status, statuses) {
				best = candidate
			}
		default:
			if candidate.LastModified.After(best.LastModified) {
				best = candidate
			}
		}
	}
	return best
}

// StatusRank returns the position of status in statuses, compared without
// regard to case, or -1 when it is not listed.
func StatusRank(status string, statuses []string) int {
	for i, s := range statuses {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(status)) {
			return i
		}
	}
	return -1
}
