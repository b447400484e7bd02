package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"podsum/internal/artifact"
	"podsum/internal/episode"
	"podsum/internal/logging"
	"podsum/internal/remote"
	"podsum/internal/services"
)

const stageName = "publish"

// Request carries everything needed to propose one artifact.
type Request struct {
	Identity episode.Identity
	Artifact artifact.Artifact
}

// Result describes the pull request that now represents the episode.
type Result struct {
	Branch       string
	BaseBranch   string
	ArtifactPath string
	PullRequest  remote.PullRequest
	// Existing is true when a pull request from an earlier or concurrent run was returned.
	Existing bool
	// Recovered is true when an orphaned branch from an earlier run was completed.
	Recovered bool
}

// Publisher performs the branch, commit, and pull request sequence.
type Publisher struct {
	remote     remote.Remote
	layout     episode.Layout
	author     remote.Signature
	baseBranch string
	logger     *slog.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

func WithLayout(layout episode.Layout) Option {
	return func(p *Publisher) { p.layout = layout }
}

func WithAuthor(author remote.Signature) Option {
	return func(p *Publisher) { p.author = author }
}

// WithBaseBranch pins the pull request target instead of asking the remote for its default branch.
func WithBaseBranch(branch string) Option {
	return func(p *Publisher) { p.baseBranch = branch }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New constructs a publisher for r.
func New(r remote.Remote, opts ...Option) *Publisher {
	p := &Publisher{remote: r, layout: episode.DefaultLayout(), logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "publisher")
	return p
}

// Publish proposes req.Artifact. It returns services.ErrConflict when a
// concurrent run holds the branch without a finished pull request,
// services.ErrRemoteState when the base branch is missing, and passes through
// services.ErrNetwork and services.ErrAuthentication from the remote.
func (p *Publisher) Publish(ctx context.Context, req Request) (Result, error) {
	if req.Identity.CanonicalID == "" || req.Artifact.Path == "" || len(req.Artifact.Content) == 0 {
		return Result{}, services.Wrap(services.ErrInvalidInput, stageName, "request", "identity and artifact are required", nil)
	}
	logger := logging.WithContext(ctx, p.logger)
	branch := p.layout.BranchName(req.Identity)
	result := Result{Branch: branch, ArtifactPath: req.Artifact.Path}

	if pr, found, err := p.findPullRequest(ctx, branch); err != nil {
		return Result{}, err
	} else if found {
		logger.Info("pull request already exists",
			logging.Branch(branch),
			logging.PullRequest(pr.Number, pr.URL),
			logging.String("state", pr.State),
		)
		result.PullRequest = pr
		result.Existing = true
		result.BaseBranch = pr.Base
		return result, nil
	}

	base, err := p.resolveBase(ctx)
	if err != nil {
		return Result{}, err
	}
	result.BaseBranch = base

	_, err = p.remote.BranchHead(ctx, branch)
	switch {
	case err == nil:
		logger.Info("recovering branch without pull request", logging.Branch(branch))
		result.Recovered = true
	case errors.Is(err, remote.ErrNotFound):
		if done, err := p.createBranch(ctx, branch, base, req, &result); err != nil || done {
			return result, err
		}
	default:
		return Result{}, classify("inspect branch", err)
	}

	if done, err := p.ensureArtifact(ctx, branch, req, &result); err != nil || done {
		return result, err
	}
	return p.openPullRequest(ctx, branch, base, req, result)
}

func (p *Publisher) resolveBase(ctx context.Context) (string, error) {
	base := p.baseBranch
	if base == "" {
		var err error
		base, err = p.remote.DefaultBranch(ctx)
		if errors.Is(err, remote.ErrNotFound) {
			return "", services.Wrap(services.ErrRemoteState, stageName, "default branch", "repository has no default branch", err)
		}
		if err != nil {
			return "", classify("resolve default branch", err)
		}
	}
	return base, nil
}

// createBranch creates branch from the base tip. It reports done when a
// concurrent run turned out to have finished the work already.
func (p *Publisher) createBranch(ctx context.Context, branch, base string, req Request, result *Result) (bool, error) {
	tip, err := p.remote.BranchHead(ctx, base)
	if errors.Is(err, remote.ErrNotFound) {
		return false, services.Wrap(services.ErrRemoteState, stageName, "default branch", fmt.Sprintf("base branch %q is missing", base), err)
	}
	if err != nil {
		return false, classify("read base tip", err)
	}
	err = p.remote.CreateBranch(ctx, branch, tip)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, remote.ErrAlreadyExists) {
		return false, classify("create branch", err)
	}
	return p.afterRejection(ctx, branch, req, result, err)
}

// ensureArtifact makes the branch carry exactly the artifact bytes.
func (p *Publisher) ensureArtifact(ctx context.Context, branch string, req Request, result *Result) (bool, error) {
	write := remote.FileWrite{
		Branch:  branch,
		Path:    req.Artifact.Path,
		Content: req.Artifact.Content,
		Message: CommitMessage(req.Artifact.Title),
		Author:  p.author,
	}
	current, err := p.remote.ReadFile(ctx, branch, req.Artifact.Path)
	switch {
	case err == nil:
		if bytes.Equal(current.Content, req.Artifact.Content) {
			return false, nil
		}
		write.ExpectedVersion = current.Version
	case errors.Is(err, remote.ErrNotFound):
	default:
		return false, classify("read artifact", err)
	}

	_, err = p.remote.WriteFile(ctx, write)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, remote.ErrConflict) || errors.Is(err, remote.ErrAlreadyExists) || errors.Is(err, remote.ErrNotFound) {
		return p.afterRejection(ctx, branch, req, result, err)
	}
	return false, classify("write artifact", err)
}

// afterRejection re-checks remote state after a concurrent write won. An
// existing pull request is returned as success; a branch already carrying the
// identical artifact lets the caller go on to open the pull request; anything
// else is a conflict.
func (p *Publisher) afterRejection(ctx context.Context, branch string, req Request, result *Result, cause error) (bool, error) {
	logger := logging.WithContext(ctx, p.logger)
	if pr, found, err := p.findPullRequest(ctx, branch); err != nil {
		return false, err
	} else if found {
		logger.Info("concurrent run already published", logging.Branch(branch), logging.PullRequest(pr.Number, pr.URL))
		result.PullRequest = pr
		result.Existing = true
		return true, nil
	}
	current, err := p.remote.ReadFile(ctx, branch, req.Artifact.Path)
	if err == nil && bytes.Equal(current.Content, req.Artifact.Content) {
		logger.Info("branch already carries identical artifact", logging.Branch(branch))
		result.Recovered = true
		return false, nil
	}
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return false, classify("re-read artifact", err)
	}
	return false, services.Wrap(services.ErrConflict, stageName, "branch", fmt.Sprintf("branch %q is held by a concurrent run", branch), cause)
}

func (p *Publisher) openPullRequest(ctx context.Context, branch, base string, req Request, result Result) (Result, error) {
	pr, err := p.remote.CreatePullRequest(ctx, remote.NewPullRequest{
		Head:  branch,
		Base:  base,
		Title: PullRequestTitle(req.Artifact.Title),
		Body:  PullRequestBody(req.Artifact),
	})
	switch {
	case err == nil:
		logging.WithContext(ctx, p.logger).Info("pull request opened",
			logging.Branch(branch),
			logging.PullRequest(pr.Number, pr.URL),
		)
		result.PullRequest = pr
		return result, nil
	case errors.Is(err, remote.ErrAlreadyExists):
		existing, found, findErr := p.findPullRequest(ctx, branch)
		if findErr != nil {
			return Result{}, findErr
		}
		if found {
			result.PullRequest = existing
			result.Existing = true
			return result, nil
		}
		return Result{}, services.Wrap(services.ErrConflict, stageName, "open pull request", "duplicate reported but not found", err)
	case errors.Is(err, remote.ErrNotFound):
		return Result{}, services.Wrap(services.ErrConflict, stageName, "open pull request", "branch disappeared before the pull request opened", err)
	default:
		return Result{}, classify("open pull request", err)
	}
}

func (p *Publisher) findPullRequest(ctx context.Context, branch string) (remote.PullRequest, bool, error) {
	pr, err := p.remote.FindPullRequest(ctx, branch)
	if errors.Is(err, remote.ErrNotFound) {
		return remote.PullRequest{}, false, nil
	}
	if err != nil {
		return remote.PullRequest{}, false, classify("find pull request", err)
	}
	return pr, true, nil
}

// classify keeps markers set by the remote implementation and maps everything
// else onto the publish failure taxonomy.
func classify(operation string, err error) error {
	switch {
	case errors.Is(err, services.ErrNetwork),
		errors.Is(err, services.ErrAuthentication),
		errors.Is(err, services.ErrRemoteState),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %s: %w", stageName, operation, err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrNetwork, stageName, operation, "timed out", err)
	case errors.Is(err, remote.ErrConflict), errors.Is(err, remote.ErrAlreadyExists):
		return services.Wrap(services.ErrConflict, stageName, operation, "", err)
	default:
		return services.Wrap(services.ErrRemoteState, stageName, operation, "unexpected remote error", err)
	}
}
