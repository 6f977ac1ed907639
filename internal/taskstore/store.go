// Package taskstore implements the read API and write path over a backlog
// directory. Each task is a markdown file under backlog/<folder>/; the
// folder is its lifecycle state (tasks, drafts, completed, archive).
//
// Writes are guarded by content hashes rather than locks: callers pass
// back the hash they read and the write is rejected with a
// *task.ConflictError if the file changed in between.
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"backlog-lite/internal/aggregate"
	"backlog-lite/internal/branchsource"
	"backlog-lite/internal/clock"
	"backlog-lite/internal/config"
	"backlog-lite/internal/ordinal"
	"backlog-lite/internal/task"
	"backlog-lite/internal/taskfile"
)

const (
	dirPerms  = 0755
	filePerms = 0644
)

// Store reads and writes task files under a backlog directory.
type Store struct {
	dir    string // path to backlog/
	cfg    config.Config
	clock  clock.Clock
	logger *slog.Logger

	source   branchsource.Source
	repoRoot string
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used to stamp dates.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger for scan warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithBranchSource enables cross-branch reads. repoRoot is the directory
// that source paths are relative to.
func WithBranchSource(src branchsource.Source, repoRoot string) Option {
	return func(s *Store) {
		s.source = src
		s.repoRoot = repoRoot
	}
}

// New returns a Store rooted at the backlog directory dir.
func New(dir string, cfg config.Config, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		cfg:    cfg,
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the backlog directory.
func (s *Store) Dir() string { return s.dir }

// Config returns the configuration the store was opened with.
func (s *Store) Config() config.Config { return s.cfg }

// Init creates the folder layout. Existing folders are left alone.
func (s *Store) Init(ctx context.Context) error {
	for _, f := range task.Folders {
		if err := os.MkdirAll(s.folderPath(f), dirPerms); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) folderPath(f task.Folder) string {
	return filepath.Join(s.dir, filepath.FromSlash(string(f)))
}

// Tasks returns the active tasks in board order.
func (s *Store) Tasks(ctx context.Context) ([]*task.Task, error) {
	return s.List(ctx, task.FolderTasks)
}

// Drafts returns the drafts in board order.
func (s *Store) Drafts(ctx context.Context) ([]*task.Task, error) {
	return s.List(ctx, task.FolderDrafts)
}

// List returns every parseable task in folder, sorted with
// ordinal.Compare. Files that fail to read or parse are logged and
// skipped. A missing folder yields an empty list.
func (s *Store) List(ctx context.Context, folder task.Folder) ([]*task.Task, error) {
	dir := s.folderPath(folder)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", folder, err)
	}

	var tasks []*task.Task
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !isTaskFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable task file", "path", path, "error", err)
			continue
		}
		t, err := s.load(path, folder, content)
		if err != nil {
			s.logger.Warn("skipping task file", "path", path, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}
	ordinal.Sort(tasks)
	return tasks, nil
}

// Task returns the task with the given id from any folder.
func (s *Store) Task(ctx context.Context, id string) (*task.Task, error) {
	loc, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.load(loc.path, loc.folder, loc.content)
}

// TasksAcrossBranches returns the active tasks merged with their copies
// on other recently active branches. Without a branch source, or with
// check_active_branches off, it returns the local tasks.
func (s *Store) TasksAcrossBranches(ctx context.Context) ([]*task.Task, error) {
	if s.source == nil || !s.cfg.CheckActiveBranches {
		return s.Tasks(ctx)
	}
	agg, err := s.Aggregator()
	if err != nil {
		return nil, err
	}
	return agg.Run(ctx)
}

// Aggregator returns the cross-branch aggregator for this store.
func (s *Store) Aggregator() (*aggregate.Aggregator, error) {
	strategy, err := aggregate.ParseStrategy(s.cfg.TaskResolutionStrategy)
	if err != nil {
		return nil, err
	}
	return aggregate.New(s.source, s.Tasks, aggregate.Options{
		TasksDir:  s.tasksDirInRepo(),
		SinceDays: s.cfg.ActiveBranchDays,
		Strategy:  strategy,
		Statuses:  s.cfg.Statuses,
		Fetch:     s.cfg.RemoteOperations,
		Logger:    s.logger,
	}), nil
}

// tasksDirInRepo is the tasks folder relative to the repository root,
// in the slash form git expects.
func (s *Store) tasksDirInRepo() string {
	tasksDir := s.folderPath(task.FolderTasks)
	if s.repoRoot == "" {
		return aggregate.DefaultTasksDir
	}
	rel, err := filepath.Rel(s.repoRoot, tasksDir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return aggregate.DefaultTasksDir
	}
	return filepath.ToSlash(rel)
}

// location is a task file found on disk together with the bytes read.
type location struct {
	path    string
	folder  task.Folder
	content []byte
}

// locate finds the file for id. File names are tried first; files whose
// name does not carry the id are parsed as a fallback.
func (s *Store) locate(ctx context.Context, id string) (location, error) {
	want := taskfile.NormalizeID(id)
	if want == "" {
		return location{}, fmt.Errorf("%w: empty id", task.ErrNotFound)
	}

	var unnamed []location
	for _, folder := range task.Folders {
		dir := s.folderPath(folder)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return location{}, err
			}
			if entry.IsDir() || !isTaskFile(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if taskfile.IDFromFilename(entry.Name()) != want {
				unnamed = append(unnamed, location{path: path, folder: folder})
				continue
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return location{}, fmt.Errorf("reading %s: %w", path, err)
			}
			if t, ok := taskfile.Parse(content, path); ok && t.ID == want {
				return location{path: path, folder: folder, content: content}, nil
			}
		}
	}

	for _, loc := range unnamed {
		content, err := os.ReadFile(loc.path)
		if err != nil {
			continue
		}
		if t, ok := taskfile.Parse(content, loc.path); ok && t.ID == want {
			loc.content = content
			return loc, nil
		}
	}
	return location{}, fmt.Errorf("%s: %w", want, task.ErrNotFound)
}

// load parses content read from path and stamps working-tree provenance.
func (s *Store) load(path string, folder task.Folder, content []byte) (*task.Task, error) {
	t, ok := taskfile.Parse(content, path)
	if !ok {
		return nil, fmt.Errorf("%s: no title or id", filepath.Base(path))
	}
	t.Folder = folder
	t.Source = task.SourceLocal
	if info, err := os.Stat(path); err == nil {
		t.LastModified = info.ModTime()
	}
	return t, nil
}

func isTaskFile(name string) bool {
	return strings.HasSuffix(name, ".md") && !strings.HasPrefix(name, ".")
}
