package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "console.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteTokenLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if _, err := s.GetToken(ctx, "dev-1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("GetToken() on empty store error = %v, want ErrNoToken", err)
	}

	if err := s.SaveToken(ctx, "dev-1", "tok-a"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if err := s.SaveToken(ctx, "dev-1", "tok-b"); err != nil {
		t.Fatalf("SaveToken() replace error = %v", err)
	}

	got, err := s.GetToken(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetToken() error = %v", err)
	}
	if got != "tok-b" {
		t.Fatalf("GetToken() = %q, want tok-b", got)
	}

	if err := s.DeleteToken(ctx, "dev-1"); err != nil {
		t.Fatalf("DeleteToken() error = %v", err)
	}
	if err := s.DeleteToken(ctx, "dev-1"); err != nil {
		t.Fatalf("DeleteToken() second call error = %v", err)
	}
	if _, err := s.GetToken(ctx, "dev-1"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("GetToken() after delete error = %v, want ErrNoToken", err)
	}
}

func TestSQLiteDeleteStaleTokens(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"old-1", "old-2", "fresh"} {
		if err := s.SaveToken(ctx, id, "tok-"+id); err != nil {
			t.Fatalf("SaveToken(%s) error = %v", id, err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	for _, id := range []string{"old-1", "old-2"} {
		if err := s.TouchToken(ctx, id, past); err != nil {
			t.Fatalf("TouchToken(%s) error = %v", id, err)
		}
	}

	swept, err := s.DeleteStaleTokens(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteStaleTokens() error = %v", err)
	}
	sort.Strings(swept)
	if len(swept) != 2 || swept[0] != "old-1" || swept[1] != "old-2" {
		t.Fatalf("DeleteStaleTokens() = %v, want [old-1 old-2]", swept)
	}

	if _, err := s.GetToken(ctx, "fresh"); err != nil {
		t.Fatalf("fresh token should survive, GetToken() error = %v", err)
	}
}

func TestSweepNotifiesCallback(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.SaveToken(ctx, "stale", "tok"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if err := s.TouchToken(ctx, "stale", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("TouchToken() error = %v", err)
	}

	var forgotten []string
	n := Sweep(ctx, s, time.Minute, func(deviceID string) { forgotten = append(forgotten, deviceID) })
	if n != 1 || len(forgotten) != 1 || forgotten[0] != "stale" {
		t.Fatalf("Sweep() = %d, callback got %v; want 1, [stale]", n, forgotten)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "", ""); err == nil {
		t.Fatal("Open(mysql) expected error")
	}
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	if _, err := NewPostgres(""); err == nil {
		t.Fatal("NewPostgres(\"\") expected error")
	}
}
