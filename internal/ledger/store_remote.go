package ledger

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"podsum/internal/remote"
)

// RemoteStore keeps one JSON file per entry under dir on a dedicated branch of
// the repository being published to. The file version is the CAS token, so a
// rejected write is a lost race.
type RemoteStore struct {
	remote remote.Remote
	branch string
	dir    string
	author remote.Signature

	mu    sync.Mutex
	ready bool
}

// NewRemoteStore constructs a store on branch/dir. The branch is created from
// the default branch tip on first write.
func NewRemoteStore(r remote.Remote, branch, dir string, author remote.Signature) *RemoteStore {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		dir = "ledger"
	}
	return &RemoteStore{remote: r, branch: branch, dir: dir, author: author}
}

func (s *RemoteStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	file, err := s.remote.ReadFile(ctx, s.branch, s.pathFor(key))
	if errors.Is(err, remote.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return file.Content, file.Version, nil
}

func (s *RemoteStore) Put(ctx context.Context, key string, value []byte, expected string) (string, error) {
	if err := s.ensureBranch(ctx); err != nil {
		return "", err
	}
	verb := "Reserve"
	if expected != "" {
		verb = "Update"
	}
	file, err := s.remote.WriteFile(ctx, remote.FileWrite{
		Branch:          s.branch,
		Path:            s.pathFor(key),
		Content:         value,
		Message:         fmt.Sprintf("%s ledger entry: %s", verb, key),
		ExpectedVersion: expected,
		Author:          s.author,
	})
	if errors.Is(err, remote.ErrConflict) || errors.Is(err, remote.ErrAlreadyExists) {
		return "", fmt.Errorf("%w: %v", ErrVersionMismatch, err)
	}
	if err != nil {
		return "", err
	}
	return file.Version, nil
}

func (s *RemoteStore) Keys(ctx context.Context) ([]string, error) {
	paths, err := s.remote.ListFiles(ctx, s.branch, s.dir)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *RemoteStore) pathFor(key string) string {
	return path.Join(s.dir, key+".json")
}

func (s *RemoteStore) ensureBranch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	_, err := s.remote.BranchHead(ctx, s.branch)
	if err == nil {
		s.ready = true
		return nil
	}
	if !errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("inspect ledger branch: %w", err)
	}
	base, err := s.remote.DefaultBranch(ctx)
	if err != nil {
		return fmt.Errorf("resolve default branch: %w", err)
	}
	tip, err := s.remote.BranchHead(ctx, base)
	if err != nil {
		return fmt.Errorf("read default branch tip: %w", err)
	}
	if err := s.remote.CreateBranch(ctx, s.branch, tip); err != nil && !errors.Is(err, remote.ErrAlreadyExists) {
		return fmt.Errorf("create ledger branch: %w", err)
	}
	s.ready = true
	return nil
}

var _ Store = (*RemoteStore)(nil)
