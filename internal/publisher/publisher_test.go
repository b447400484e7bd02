package publisher_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"podsum/internal/artifact"
	"podsum/internal/episode"
	"podsum/internal/publisher"
	"podsum/internal/remote"
	"podsum/internal/services"
)

var bot = remote.Signature{Name: "Podcast Summary Bot", Email: "bot@podcast-summary.local"}

func newRequest(t *testing.T, title string) publisher.Request {
	t.Helper()
	ep := episode.Episode{Title: title, Published: "2024-03-01", EpisodeURL: "https://example.com/" + title}
	id, err := episode.NewResolver().Resolve(ep)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	a, err := artifact.NewBuilder().Build(ep, id, "", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return publisher.Request{Identity: id, Artifact: a}
}

func TestPublishCreatesBranchFileAndPullRequest(t *testing.T) {
	mem := remote.NewMemory("main")
	pub := publisher.New(mem, publisher.WithAuthor(bot))
	req := newRequest(t, "Episode One")

	res, err := pub.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Existing || res.Recovered {
		t.Fatalf("fresh publish flagged existing/recovered: %+v", res)
	}
	if res.Branch != "ai/podcast-2024-03-01-episode-one" {
		t.Fatalf("unexpected branch %q", res.Branch)
	}
	if res.BaseBranch != "main" {
		t.Fatalf("unexpected base %q", res.BaseBranch)
	}
	if res.PullRequest.Number != 1 || res.PullRequest.Title != "Podcast Summary: Episode One" {
		t.Fatalf("unexpected pull request %+v", res.PullRequest)
	}
	file, err := mem.ReadFile(context.Background(), res.Branch, "summaries/2024-03-01-episode-one.md")
	if err != nil {
		t.Fatalf("artifact missing on branch: %v", err)
	}
	if string(file.Content) != string(req.Artifact.Content) {
		t.Fatal("artifact content mismatch")
	}
	if _, err := mem.ReadFile(context.Background(), "main", req.Artifact.Path); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("default branch must stay untouched, got %v", err)
	}
	stats := mem.Stats()
	if stats.BranchesCreated != 1 || stats.FilesWritten != 1 || stats.PullRequestsCreated != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	mem := remote.NewMemory("main")
	pub := publisher.New(mem)
	req := newRequest(t, "Episode One")

	first, err := pub.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	second, err := pub.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if !second.Existing {
		t.Fatal("expected second publish to return the existing pull request")
	}
	if second.PullRequest.Number != first.PullRequest.Number {
		t.Fatalf("pull request changed: %d vs %d", second.PullRequest.Number, first.PullRequest.Number)
	}
	if stats := mem.Stats(); stats.PullRequestsCreated != 1 || stats.BranchesCreated != 1 {
		t.Fatalf("duplicate mutations: %+v", stats)
	}
}

func TestPublishReturnsMergedPullRequestAfterBranchCleanup(t *testing.T) {
	mem := remote.NewMemory("main")
	pub := publisher.New(mem)
	req := newRequest(t, "Episode One")

	first, err := pub.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := mem.SetPullRequestState(first.PullRequest.Number, remote.StateMerged); err != nil {
		t.Fatalf("merge: %v", err)
	}
	mem.DeleteBranch(first.Branch)

	again, err := pub.Publish(context.Background(), req)
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if !again.Existing || again.PullRequest.State != remote.StateMerged {
		t.Fatalf("expected merged pull request returned, got %+v", again)
	}
	if stats := mem.Stats(); stats.BranchesCreated != 1 {
		t.Fatalf("branch must not be recreated: %+v", stats)
	}
}

func TestPublishRecoversBranchWithoutPullRequest(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory("main")
	req := newRequest(t, "Episode One")
	branch := req.Identity.BranchName()
	tip, _ := mem.BranchHead(ctx, "main")
	if err := mem.CreateBranch(ctx, branch, tip); err != nil {
		t.Fatalf("seed branch: %v", err)
	}

	res, err := publisher.New(mem).Publish(ctx, req)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Recovered || res.Existing {
		t.Fatalf("expected recovered publish, got %+v", res)
	}
	if stats := mem.Stats(); stats.FilesWritten != 1 || stats.PullRequestsCreated != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPublishRecoveryWithIdenticalArtifactSkipsWrite(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory("main")
	req := newRequest(t, "Episode One")
	branch := req.Identity.BranchName()
	tip, _ := mem.BranchHead(ctx, "main")
	if err := mem.CreateBranch(ctx, branch, tip); err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	if _, err := mem.WriteFile(ctx, remote.FileWrite{Branch: branch, Path: req.Artifact.Path, Content: req.Artifact.Content}); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	res, err := publisher.New(mem).Publish(ctx, req)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Recovered || res.PullRequest.Number != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if stats := mem.Stats(); stats.FilesWritten != 1 {
		t.Fatalf("identical artifact must not be rewritten: %+v", stats)
	}
}

func TestPublishConcurrentWinnerIsReturned(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory("main")
	req := newRequest(t, "Episode One")
	other := publisher.New(mem)

	var once sync.Once
	var otherErr error
	mem.SetHooks(remote.Hooks{
		BeforeCreateBranch: func(ctx context.Context, branch string) error {
			once.Do(func() {
				mem.SetHooks(remote.Hooks{})
				_, otherErr = other.Publish(ctx, req)
			})
			return nil
		},
	})

	res, err := publisher.New(mem).Publish(ctx, req)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if otherErr != nil {
		t.Fatalf("concurrent publish: %v", otherErr)
	}
	if !res.Existing || res.PullRequest.Number != 1 {
		t.Fatalf("expected the concurrent pull request, got %+v", res)
	}
	if n := len(mem.PullRequests()); n != 1 {
		t.Fatalf("expected one pull request, got %d", n)
	}
}

func TestPublishConcurrentBranchWithoutArtifactIsConflict(t *testing.T) {
	ctx := context.Background()
	mem := remote.NewMemory("main")
	req := newRequest(t, "Episode One")

	var once sync.Once
	mem.SetHooks(remote.Hooks{
		BeforeCreateBranch: func(ctx context.Context, branch string) error {
			once.Do(func() {
				mem.SetHooks(remote.Hooks{})
				tip, _ := mem.BranchHead(ctx, "main")
				_ = mem.CreateBranch(ctx, branch, tip)
			})
			return nil
		},
	})

	_, err := publisher.New(mem).Publish(ctx, req)
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !services.Retryable(err) {
		t.Fatal("conflict should be retryable")
	}

	// The retry sees an orphaned branch and completes it.
	res, err := publisher.New(mem).Publish(ctx, req)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !res.Recovered {
		t.Fatalf("expected recovered retry, got %+v", res)
	}
}

func TestPublishMissingBaseBranchIsRemoteState(t *testing.T) {
	mem := remote.NewMemory("main")
	_, err := publisher.New(mem, publisher.WithBaseBranch("trunk")).Publish(context.Background(), newRequest(t, "Episode One"))
	if !errors.Is(err, services.ErrRemoteState) {
		t.Fatalf("expected remote state error, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatal("remote state errors must not be retryable")
	}
	if stats := mem.Stats(); stats.BranchesCreated != 0 {
		t.Fatalf("nothing should be created: %+v", stats)
	}
}

func TestPublishPropagatesNetworkErrors(t *testing.T) {
	mem := remote.NewMemory("main")
	mem.SetHooks(remote.Hooks{
		BeforeWriteFile: func(context.Context, remote.FileWrite) error {
			return services.Wrap(services.ErrNetwork, "github", "write", "connection reset", fmt.Errorf("dial tcp: reset"))
		},
	})
	_, err := publisher.New(mem).Publish(context.Background(), newRequest(t, "Episode One"))
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !services.Retryable(err) {
		t.Fatal("network errors should be retryable")
	}
}

func TestPublishRejectsIncompleteRequest(t *testing.T) {
	_, err := publisher.New(remote.NewMemory("main")).Publish(context.Background(), publisher.Request{})
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
