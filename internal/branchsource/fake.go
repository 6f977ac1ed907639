package branchsource

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"backlog-lite/internal/clock"
)

type fakeFile struct {
	content  []byte
	modified time.Time
}

// Fake is an in-memory Source. It counts ReadFile calls so tests can
// check which reads were skipped. It is safe for concurrent use.
type Fake struct {
	mu          sync.Mutex
	clock       clock.Clock
	current     string
	defaultName string
	unavailable bool
	branches    []Branch
	files       map[string]map[string]fakeFile
	reads       map[string]int
	fetches     []string
}

// NewFake returns an empty Fake with current as the checked-out branch.
func NewFake(current string, c clock.Clock) *Fake {
	if c == nil {
		c = clock.Real()
	}
	return &Fake{
		clock:       c,
		current:     current,
		defaultName: "main",
		files:       make(map[string]map[string]fakeFile),
		reads:       make(map[string]int),
	}
}

// SetUnavailable makes every call behave like a directory without git.
func (f *Fake) SetUnavailable(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = v
}

// SetDefault sets the name DefaultBranch reports.
func (f *Fake) SetDefault(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaultName = name
}

// AddBranch registers a branch tip.
func (f *Fake) AddBranch(b Branch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches = append(f.branches, b)
	if f.files[b.Name] == nil {
		f.files[b.Name] = make(map[string]fakeFile)
	}
}

// WriteFile stores content at p on branch, last changed at modified.
func (f *Fake) WriteFile(branch, p string, content []byte, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files[branch] == nil {
		f.files[branch] = make(map[string]fakeFile)
	}
	f.files[branch][path.Clean(p)] = fakeFile{content: append([]byte(nil), content...), modified: modified}
}

// Reads returns how many times p was read from branch.
func (f *Fake) Reads(branch, p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[branch+":"+path.Clean(p)]
}

// TotalReads returns the number of ReadFile calls.
func (f *Fake) TotalReads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.reads {
		total += n
	}
	return total
}

// Fetches returns the remotes passed to Fetch, in call order.
func (f *Fake) Fetches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetches...)
}

func (f *Fake) ListBranches(_ context.Context, sinceDays int) ([]Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return nil, ErrUnavailable
	}
	var cutoff time.Time
	if sinceDays > 0 {
		cutoff = f.clock.Now().AddDate(0, 0, -sinceDays)
	}
	var out []Branch
	for _, b := range f.branches {
		if !cutoff.IsZero() && b.LastCommit.Before(cutoff) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastCommit.After(out[j].LastCommit)
	})
	return out, nil
}

func (f *Fake) CurrentBranch(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return "", ErrUnavailable
	}
	return f.current, nil
}

func (f *Fake) DefaultBranch(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return ""
	}
	return f.defaultName
}

func (f *Fake) PathExists(_ context.Context, branch, p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = path.Clean(p)
	for name := range f.files[branch] {
		if name == p || strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}

func (f *Fake) ListFiles(_ context.Context, branch, dir string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	dir = path.Clean(dir)
	var names []string
	for name := range f.files[branch] {
		if path.Dir(name) == dir {
			names = append(names, path.Base(name))
		}
	}
	sort.Strings(names)
	return names
}

func (f *Fake) ReadFile(_ context.Context, branch, p string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p = path.Clean(p)
	f.reads[branch+":"+p]++
	file, ok := f.files[branch][p]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), file.content...), true
}

func (f *Fake) FileLastChanged(_ context.Context, branch, p string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[branch][path.Clean(p)]
	if !ok {
		return time.Time{}, false
	}
	return file.modified, true
}

func (f *Fake) Fetch(_ context.Context, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return ErrUnavailable
	}
	f.fetches = append(f.fetches, remote)
	return nil
}
