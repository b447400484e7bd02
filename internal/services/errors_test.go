package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"podsum/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNetwork, "publish", "create branch", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"publish", "create branch", "request failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(services.ErrRemoteState, "", "", "", nil)
	if err.Error() != "remote state error: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", services.Wrap(services.ErrNetwork, "publish", "push", "", nil), true},
		{"conflict", services.Wrap(services.ErrConflict, "publish", "push", "", nil), true},
		{"deadline", fmt.Errorf("attempt: %w", context.DeadlineExceeded), true},
		{"auth", services.Wrap(services.ErrAuthentication, "publish", "push", "", nil), false},
		{"remote state", services.Wrap(services.ErrRemoteState, "publish", "tip", "", nil), false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestKindLabels(t *testing.T) {
	if kind := services.Kind(services.Wrap(services.ErrInvalidInput, "resolve", "", "empty title", nil)); kind != "invalid_input" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.Kind(services.Wrap(services.ErrConflict, "publish", "", "", nil)); kind != "conflict" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.Kind(errors.New("x")); kind != "unknown" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.Kind(nil); kind != "" {
		t.Fatalf("expected empty kind for nil, got %q", kind)
	}
}
