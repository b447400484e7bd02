package remote

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// Hooks let tests interleave concurrent actions just before a mutation takes
// effect. A hook returning an error aborts the call with that error.
type Hooks struct {
	BeforeCreateBranch      func(ctx context.Context, branch string) error
	BeforeWriteFile         func(ctx context.Context, write FileWrite) error
	BeforeCreatePullRequest func(ctx context.Context, pr NewPullRequest) error
}

// Stats counts successful mutations on a Memory remote.
type Stats struct {
	BranchesCreated     int
	FilesWritten        int
	PullRequestsCreated int
}

type memFile struct {
	content []byte
	version string
}

type memBranch struct {
	head  string
	files map[string]memFile
}

// Memory is an in-process Remote used by tests and dry runs. It is safe for
// concurrent use.
type Memory struct {
	mu            sync.Mutex
	defaultBranch string
	branches      map[string]*memBranch
	pulls         []PullRequest
	seq           int
	stats         Stats
	hooks         Hooks
	baseURL       string
}

// NewMemory returns a remote holding a single default branch with one commit.
func NewMemory(defaultBranch string) *Memory {
	if defaultBranch == "" {
		defaultBranch = "main"
	}
	m := &Memory{
		defaultBranch: defaultBranch,
		branches:      map[string]*memBranch{},
		baseURL:       "memory://podsum",
	}
	m.branches[defaultBranch] = &memBranch{head: m.nextID("c"), files: map[string]memFile{}}
	return m
}

// SetHooks replaces the mutation hooks.
func (m *Memory) SetHooks(h Hooks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = h
}

// Stats returns mutation counters.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// DeleteBranch removes a branch, as a merge with branch cleanup would.
func (m *Memory) DeleteBranch(branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.branches, branch)
}

// SetPullRequestState moves a pull request to closed or merged.
func (m *Memory) SetPullRequestState(number int, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pulls {
		if m.pulls[i].Number == number {
			m.pulls[i].State = state
			return nil
		}
	}
	return ErrNotFound
}

// PullRequests returns a copy of every pull request ever opened.
func (m *Memory) PullRequests() []PullRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PullRequest(nil), m.pulls...)
}

func (m *Memory) DefaultBranch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.branches[m.defaultBranch]; !ok {
		return "", fmt.Errorf("default branch %q: %w", m.defaultBranch, ErrNotFound)
	}
	return m.defaultBranch, nil
}

func (m *Memory) BranchHead(ctx context.Context, branch string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[branch]
	if !ok {
		return "", fmt.Errorf("branch %q: %w", branch, ErrNotFound)
	}
	return b.head, nil
}

func (m *Memory) CreateBranch(ctx context.Context, branch, commit string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hook := m.hook().BeforeCreateBranch; hook != nil {
		if err := hook(ctx, branch); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.branches[branch]; ok {
		return fmt.Errorf("branch %q: %w", branch, ErrAlreadyExists)
	}
	source := m.findCommit(commit)
	if source == nil {
		return fmt.Errorf("commit %q: %w", commit, ErrNotFound)
	}
	files := make(map[string]memFile, len(source.files))
	for p, f := range source.files {
		files[p] = f
	}
	m.branches[branch] = &memBranch{head: commit, files: files}
	m.stats.BranchesCreated++
	return nil
}

func (m *Memory) ReadFile(ctx context.Context, branch, filePath string) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[branch]
	if !ok {
		return File{}, fmt.Errorf("branch %q: %w", branch, ErrNotFound)
	}
	f, ok := b.files[filePath]
	if !ok {
		return File{}, fmt.Errorf("%s on %s: %w", filePath, branch, ErrNotFound)
	}
	return File{Path: filePath, Content: append([]byte(nil), f.content...), Version: f.version}, nil
}

func (m *Memory) WriteFile(ctx context.Context, write FileWrite) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if hook := m.hook().BeforeWriteFile; hook != nil {
		if err := hook(ctx, write); err != nil {
			return File{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[write.Branch]
	if !ok {
		return File{}, fmt.Errorf("branch %q: %w", write.Branch, ErrNotFound)
	}
	current, exists := b.files[write.Path]
	switch {
	case write.ExpectedVersion == "" && exists:
		return File{}, fmt.Errorf("%s already exists on %s: %w", write.Path, write.Branch, ErrConflict)
	case write.ExpectedVersion != "" && (!exists || current.version != write.ExpectedVersion):
		return File{}, fmt.Errorf("%s on %s changed: %w", write.Path, write.Branch, ErrConflict)
	}
	f := memFile{content: append([]byte(nil), write.Content...), version: m.nextID("v")}
	b.files[write.Path] = f
	b.head = m.nextID("c")
	m.stats.FilesWritten++
	return File{Path: write.Path, Content: append([]byte(nil), f.content...), Version: f.version}, nil
}

func (m *Memory) ListFiles(ctx context.Context, branch, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.branches[branch]
	if !ok {
		return nil, fmt.Errorf("branch %q: %w", branch, ErrNotFound)
	}
	dir = strings.Trim(dir, "/")
	var out []string
	for p := range b.files {
		if path.Dir(p) == dir || (dir == "" && !strings.Contains(p, "/")) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) FindPullRequest(ctx context.Context, head string) (PullRequest, error) {
	if err := ctx.Err(); err != nil {
		return PullRequest{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.pulls) - 1; i >= 0; i-- {
		if m.pulls[i].Head == head {
			return m.pulls[i], nil
		}
	}
	return PullRequest{}, fmt.Errorf("pull request for %q: %w", head, ErrNotFound)
}

func (m *Memory) CreatePullRequest(ctx context.Context, pr NewPullRequest) (PullRequest, error) {
	if err := ctx.Err(); err != nil {
		return PullRequest{}, err
	}
	if hook := m.hook().BeforeCreatePullRequest; hook != nil {
		if err := hook(ctx, pr); err != nil {
			return PullRequest{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.branches[pr.Head]; !ok {
		return PullRequest{}, fmt.Errorf("head %q: %w", pr.Head, ErrNotFound)
	}
	if _, ok := m.branches[pr.Base]; !ok {
		return PullRequest{}, fmt.Errorf("base %q: %w", pr.Base, ErrNotFound)
	}
	for _, existing := range m.pulls {
		if existing.Head == pr.Head && existing.State == StateOpen {
			return PullRequest{}, fmt.Errorf("pull request for %q: %w", pr.Head, ErrAlreadyExists)
		}
	}
	number := len(m.pulls) + 1
	created := PullRequest{
		Number: number,
		URL:    fmt.Sprintf("%s/pull/%d", m.baseURL, number),
		State:  StateOpen,
		Head:   pr.Head,
		Base:   pr.Base,
		Title:  pr.Title,
	}
	m.pulls = append(m.pulls, created)
	m.stats.PullRequestsCreated++
	return created, nil
}

func (m *Memory) hook() Hooks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hooks
}

func (m *Memory) findCommit(commit string) *memBranch {
	for _, b := range m.branches {
		if b.head == commit {
			return b
		}
	}
	return nil
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%06d", prefix, m.seq)
}

var _ Remote = (*Memory)(nil)
