package testsupport

import (
	"context"
	"strconv"
	"testing"

	"podsum/internal/config"
	"podsum/internal/ledger"
)

// MustOpenLedger opens a sqlite-backed ledger at cfg.Ledger.SQLitePath and
// registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config, opts ...ledger.Option) *ledger.Ledger {
	t.Helper()

	store, err := ledger.OpenSQLite(context.Background(), cfg.Ledger.SQLitePath)
	if err != nil {
		t.Fatalf("ledger.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return ledger.New(store, opts...)
}

// Publish seeds a published ledger entry for canonicalID.
func Publish(t testing.TB, l *ledger.Ledger, canonicalID, branch string, number int) ledger.Entry {
	t.Helper()

	ctx := context.Background()
	res, err := l.Reserve(ctx, canonicalID, branch)
	if err != nil {
		t.Fatalf("ledger.Reserve: %v", err)
	}
	entry, err := l.Commit(ctx, res, ledger.Publication{
		Branch:      branch,
		PullRequest: ledger.PullRequestRef{Number: number, URL: "memory://podsum/pull/" + strconv.Itoa(number)},
	})
	if err != nil {
		t.Fatalf("ledger.Commit: %v", err)
	}
	return entry
}
