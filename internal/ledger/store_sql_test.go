package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestSQLStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	defer store.Close()

	v1, err := store.Put(ctx, "k", []byte("one"), "")
	if err != nil || v1 != "1" {
		t.Fatalf("Put = %q, %v", v1, err)
	}
	if _, err := store.Put(ctx, "k", []byte("dup"), ""); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected insert conflict, got %v", err)
	}
	v2, err := store.Put(ctx, "k", []byte("two"), v1)
	if err != nil || v2 != "2" {
		t.Fatalf("Put = %q, %v", v2, err)
	}
	if _, err := store.Put(ctx, "k", []byte("late"), v1); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected stale update to mismatch, got %v", err)
	}
	body, version, err := store.Get(ctx, "k")
	if err != nil || string(body) != "two" || version != "2" {
		t.Fatalf("Get = %q %q %v", body, version, err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRebindForPostgres(t *testing.T) {
	store := &SQLStore{dialect: DialectPostgres}
	got := store.rebind("UPDATE t SET a = ? WHERE b = ? AND c = ?")
	if got != "UPDATE t SET a = $1 WHERE b = $2 AND c = $3" {
		t.Fatalf("unexpected rebind %q", got)
	}
	sqlite := &SQLStore{dialect: DialectSQLite}
	if sqlite.rebind("a = ?") != "a = ?" {
		t.Fatal("sqlite queries should keep ? placeholders")
	}
}
