package webhook_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podsum/internal/artifact"
	"podsum/internal/episode"
	"podsum/internal/pipeline"
	"podsum/internal/publisher"
	"podsum/internal/remote"
	"podsum/internal/services"
	"podsum/internal/testsupport"
	"podsum/internal/webhook"
)

type processorFunc func(ctx context.Context, event episode.Event) (pipeline.Outcome, error)

func (f processorFunc) Process(ctx context.Context, event episode.Event) (pipeline.Outcome, error) {
	return f(ctx, event)
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, webhook.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/episodes", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var resp webhook.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestEpisodeEndpointPublishes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mem := remote.NewMemory("main")
	p := pipeline.New(episode.NewResolver(), artifact.NewBuilder(), testsupport.MustOpenLedger(t, cfg), publisher.New(mem))
	srv := webhook.New("127.0.0.1:0", p)

	w, resp := post(t, srv.Handler(), `{"title":"Episode One","published":"2026-02-13T10:00:00Z","taskType":"podcast_summary"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp.State != string(pipeline.StateDone) || resp.PullRequestURL == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.ArtifactPath != "summaries/2026-02-13-episode-one.md" || !resp.Degraded {
		t.Fatalf("unexpected artifact fields %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" || resp.RequestID == "" {
		t.Fatal("expected request id")
	}

	w, resp = post(t, srv.Handler(), `{"title":"Episode One","published":"2026-02-13T10:00:00Z"}`)
	if w.Code != http.StatusOK || resp.State != string(pipeline.StateAborted) {
		t.Fatalf("expected aborted rerun, got %d %+v", w.Code, resp)
	}
	if len(mem.PullRequests()) != 1 {
		t.Fatalf("expected one pull request, got %d", len(mem.PullRequests()))
	}
}

func TestEpisodeEndpointRejectsMissingTitle(t *testing.T) {
	called := false
	srv := webhook.New("127.0.0.1:0", processorFunc(func(ctx context.Context, event episode.Event) (pipeline.Outcome, error) {
		called = true
		return pipeline.Outcome{}, nil
	}))

	w, resp := post(t, srv.Handler(), `{"published":"2026-02-13"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Error == "" || called {
		t.Fatalf("unexpected response %+v called=%v", resp, called)
	}
}

func TestEpisodeEndpointEnforcesBodyLimit(t *testing.T) {
	srv := webhook.New("127.0.0.1:0", processorFunc(func(ctx context.Context, event episode.Event) (pipeline.Outcome, error) {
		t.Fatal("processor should not run")
		return pipeline.Outcome{}, nil
	}), webhook.WithMaxBodyBytes(16))

	w, _ := post(t, srv.Handler(), `{"title":"A very long episode title indeed"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestEpisodeEndpointMapsFailures(t *testing.T) {
	cases := []struct {
		name   string
		state  pipeline.State
		err    error
		status int
	}{
		{"retryable", pipeline.StateFailedRetryable, services.Wrap(services.ErrNetwork, "publish", "create", "reset", nil), http.StatusServiceUnavailable},
		{"auth", pipeline.StateFailed, services.Wrap(services.ErrAuthentication, "publish", "create", "bad token", nil), http.StatusBadGateway},
		{"unknown", pipeline.StateFailed, fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := webhook.New("127.0.0.1:0", processorFunc(func(ctx context.Context, event episode.Event) (pipeline.Outcome, error) {
				if _, ok := services.RequestIDFromContext(ctx); !ok {
					t.Error("expected request id in context")
				}
				return pipeline.Outcome{State: tc.state, RunID: "run-1"}, tc.err
			}))
			w, resp := post(t, srv.Handler(), `{"title":"Episode One"}`)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			if resp.State != string(tc.state) || resp.Error == "" || resp.RunID != "run-1" {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestServerStartServesHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := webhook.New("127.0.0.1:0", processorFunc(func(ctx context.Context, event episode.Event) (pipeline.Outcome, error) {
		return pipeline.Outcome{}, nil
	}))
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestEpisodeEndpointRejectsGet(t *testing.T) {
	srv := webhook.New("127.0.0.1:0", nil)
	req := httptest.NewRequest(http.MethodGet, "/episodes", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
