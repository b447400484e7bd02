package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v68/github"

	"podsum/internal/logging"
	"podsum/internal/remote"
	"podsum/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	stageName          = "github"
	pullListPageSize   = 10
)

// Config captures the repository coordinates and credentials.
type Config struct {
	Owner   string
	Name    string
	Token   string
	BaseURL string
	Timeout time.Duration
}

// Client talks to a single GitHub repository.
type Client struct {
	owner  string
	name   string
	api    *gogithub.Client
	logger *slog.Logger
}

// Option customizes the client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New constructs a client for cfg.Owner/cfg.Name.
func New(cfg Config, opts ...Option) (*Client, error) {
	owner := strings.TrimSpace(cfg.Owner)
	name := strings.TrimSpace(cfg.Name)
	if owner == "" || name == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "owner and name are required", nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	options := clientOptions{httpClient: &http.Client{Timeout: timeout}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	api := gogithub.NewClient(options.httpClient)
	if token := strings.TrimSpace(cfg.Token); token != "" {
		api = api.WithAuthToken(token)
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		parsed, err := url.Parse(base)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "invalid api base url", err)
		}
		api.BaseURL = parsed
	}
	return &Client{
		owner:  owner,
		name:   name,
		api:    api,
		logger: logging.NewComponentLogger(options.logger, "github"),
	}, nil
}

func (c *Client) DefaultBranch(ctx context.Context) (string, error) {
	repo, _, err := c.api.Repositories.Get(ctx, c.owner, c.name)
	if err != nil {
		return "", c.classify(ctx, "get repository", err, nil)
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch: %w", c.owner, c.name, remote.ErrNotFound)
	}
	return branch, nil
}

func (c *Client) BranchHead(ctx context.Context, branch string) (string, error) {
	ref, _, err := c.api.Git.GetRef(ctx, c.owner, c.name, "heads/"+branch)
	if err != nil {
		return "", c.classify(ctx, "get ref "+branch, err, nil)
	}
	return ref.GetObject().GetSHA(), nil
}

func (c *Client) CreateBranch(ctx context.Context, branch, commit string) error {
	_, _, err := c.api.Git.CreateRef(ctx, c.owner, c.name, &gogithub.Reference{
		Ref:    gogithub.Ptr("refs/heads/" + branch),
		Object: &gogithub.GitObject{SHA: gogithub.Ptr(commit)},
	})
	if err != nil {
		return c.classify(ctx, "create ref "+branch, err, remote.ErrAlreadyExists)
	}
	return nil
}

func (c *Client) ReadFile(ctx context.Context, branch, filePath string) (remote.File, error) {
	file, dir, _, err := c.api.Repositories.GetContents(ctx, c.owner, c.name, filePath, &gogithub.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return remote.File{}, c.classify(ctx, "get contents "+filePath, err, nil)
	}
	if file == nil || dir != nil {
		return remote.File{}, fmt.Errorf("%s on %s is a directory: %w", filePath, branch, remote.ErrNotFound)
	}
	content, err := file.GetContent()
	if err != nil {
		return remote.File{}, services.Wrap(services.ErrRemoteState, stageName, "decode contents", filePath, err)
	}
	return remote.File{Path: filePath, Content: []byte(content), Version: file.GetSHA()}, nil
}

// WriteFile creates the path when ExpectedVersion is empty and updates it
// otherwise. GitHub rejects a create over an existing path with 422 and an
// update against a stale blob SHA with 409; both surface as remote.ErrConflict.
func (c *Client) WriteFile(ctx context.Context, write remote.FileWrite) (remote.File, error) {
	opts := &gogithub.RepositoryContentFileOptions{
		Message: gogithub.Ptr(write.Message),
		Content: write.Content,
		Branch:  gogithub.Ptr(write.Branch),
	}
	if write.Author.Name != "" {
		author := &gogithub.CommitAuthor{Name: gogithub.Ptr(write.Author.Name), Email: gogithub.Ptr(write.Author.Email)}
		opts.Author = author
		opts.Committer = author
	}

	var (
		resp *gogithub.RepositoryContentResponse
		err  error
	)
	if write.ExpectedVersion == "" {
		resp, _, err = c.api.Repositories.CreateFile(ctx, c.owner, c.name, write.Path, opts)
	} else {
		opts.SHA = gogithub.Ptr(write.ExpectedVersion)
		resp, _, err = c.api.Repositories.UpdateFile(ctx, c.owner, c.name, write.Path, opts)
	}
	if err != nil {
		return remote.File{}, c.classify(ctx, "write "+write.Path, err, remote.ErrConflict)
	}
	logging.WithContext(ctx, c.logger).Debug("file committed",
		logging.Branch(write.Branch),
		logging.String("path", write.Path),
		logging.String("commit", resp.Commit.GetSHA()),
	)
	return remote.File{
		Path:    write.Path,
		Content: append([]byte(nil), write.Content...),
		Version: resp.GetContent().GetSHA(),
	}, nil
}

func (c *Client) ListFiles(ctx context.Context, branch, dir string) ([]string, error) {
	dir = strings.Trim(dir, "/")
	_, entries, _, err := c.api.Repositories.GetContents(ctx, c.owner, c.name, dir, &gogithub.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		return nil, c.classify(ctx, "list "+dir, err, nil)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.GetType() != "file" {
			continue
		}
		p := entry.GetPath()
		if p == "" {
			p = path.Join(dir, entry.GetName())
		}
		files = append(files, p)
	}
	return files, nil
}

// FindPullRequest returns the most recently created pull request whose head
// is branch, in any state.
func (c *Client) FindPullRequest(ctx context.Context, head string) (remote.PullRequest, error) {
	pulls, _, err := c.api.PullRequests.List(ctx, c.owner, c.name, &gogithub.PullRequestListOptions{
		State:       "all",
		Head:        c.owner + ":" + head,
		Sort:        "created",
		Direction:   "desc",
		ListOptions: gogithub.ListOptions{PerPage: pullListPageSize},
	})
	if err != nil {
		return remote.PullRequest{}, c.classify(ctx, "list pull requests", err, nil)
	}
	for _, pr := range pulls {
		if pr.GetHead().GetRef() == head {
			return convertPullRequest(pr), nil
		}
	}
	return remote.PullRequest{}, fmt.Errorf("pull request for %q: %w", head, remote.ErrNotFound)
}

func (c *Client) CreatePullRequest(ctx context.Context, pr remote.NewPullRequest) (remote.PullRequest, error) {
	created, _, err := c.api.PullRequests.Create(ctx, c.owner, c.name, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(pr.Title),
		Head:  gogithub.Ptr(pr.Head),
		Base:  gogithub.Ptr(pr.Base),
		Body:  gogithub.Ptr(pr.Body),
	})
	if err != nil {
		var resp *gogithub.ErrorResponse
		if errors.As(err, &resp) && statusCode(resp.Response) == http.StatusUnprocessableEntity && mentionsExisting(resp) {
			return remote.PullRequest{}, fmt.Errorf("pull request for %q: %w", pr.Head, remote.ErrAlreadyExists)
		}
		return remote.PullRequest{}, c.classify(ctx, "create pull request", err, nil)
	}
	return convertPullRequest(created), nil
}

func convertPullRequest(pr *gogithub.PullRequest) remote.PullRequest {
	state := pr.GetState()
	if pr.MergedAt != nil || pr.GetMerged() {
		state = remote.StateMerged
	}
	return remote.PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		State:  state,
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
		Title:  pr.GetTitle(),
	}
}

func mentionsExisting(resp *gogithub.ErrorResponse) bool {
	if strings.Contains(strings.ToLower(resp.Message), "already exists") {
		return true
	}
	for _, e := range resp.Errors {
		if strings.Contains(strings.ToLower(e.Message), "already exists") {
			return true
		}
	}
	return false
}

var _ remote.Remote = (*Client)(nil)
