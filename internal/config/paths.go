package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the backlog directory inside a project.
	DirName = "backlog"
	// FileName is the config file inside the backlog directory.
	FileName = "config.yml"
)

// Paths captures resolved locations for a backlog.
type Paths struct {
	Root       string // project root, the parent of the backlog directory
	BacklogDir string // path to backlog/
	ConfigFile string // path to backlog/config.yml
}

// ResolvePaths locates the backlog and loads its configuration with env
// overrides applied. Discovery order: base (a project root or backlog
// directory) > BACKLOG_DIR > walk up from the current directory, stopping
// at the git root.
func ResolvePaths(base string) (Paths, Config, error) {
	if base == "" {
		base = os.Getenv(EnvBacklogDir)
	}

	var paths Paths
	if base != "" {
		p, err := fromBase(base)
		if err != nil {
			return Paths{}, Config{}, err
		}
		paths = p
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return Paths{}, Config{}, fmt.Errorf("cannot get current directory: %w", err)
		}
		p, found, err := findUpward(cwd)
		if err != nil {
			return Paths{}, Config{}, err
		}
		if !found {
			return Paths{}, Config{}, missingConfigErr(filepath.Join(cwd, DirName, FileName))
		}
		paths = p
	}

	cfg, err := Load(paths.ConfigFile)
	if err != nil {
		return Paths{}, Config{}, err
	}
	ApplyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return Paths{}, Config{}, err
	}
	return paths, cfg, nil
}

// NewPaths returns the Paths for a backlog directory.
func NewPaths(backlogDir string) Paths {
	return Paths{
		Root:       filepath.Dir(backlogDir),
		BacklogDir: backlogDir,
		ConfigFile: filepath.Join(backlogDir, FileName),
	}
}

// fromBase accepts either the backlog directory itself or the project
// root containing it.
func fromBase(base string) (Paths, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Paths{}, missingConfigErr(filepath.Join(abs, FileName))
		}
		return Paths{}, fmt.Errorf("cannot access backlog directory %s: %w", abs, err)
	}
	if !info.IsDir() {
		return Paths{}, fmt.Errorf("backlog path is not a directory: %s", abs)
	}

	for _, dir := range []string{abs, filepath.Join(abs, DirName)} {
		if isFile(filepath.Join(dir, FileName)) {
			return NewPaths(dir), nil
		}
	}
	return Paths{}, missingConfigErr(filepath.Join(abs, FileName))
}

// findUpward walks from start toward the filesystem root looking for
// backlog/config.yml. It stops at the git repository root so it never
// escapes the repo.
func findUpward(start string) (Paths, bool, error) {
	gitRoot := FindGitRoot(start)

	dir := start
	for {
		configFile := filepath.Join(dir, DirName, FileName)
		if info, err := os.Stat(configFile); err == nil && !info.IsDir() {
			return NewPaths(filepath.Join(dir, DirName)), true, nil
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Paths{}, false, fmt.Errorf("checking config: %w", err)
		}

		if gitRoot != "" && dir == gitRoot {
			return Paths{}, false, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Paths{}, false, nil
		}
		dir = parent
	}
}

// FindGitRoot returns the git repository root for the given directory, or
// "" if it is not inside one. .git may be a directory or, in a worktree,
// a file.
func FindGitRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			if info.IsDir() || info.Mode().IsRegular() {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func missingConfigErr(configFile string) error {
	return fmt.Errorf("no backlog found at %s (run `bl init`)", configFile)
}
