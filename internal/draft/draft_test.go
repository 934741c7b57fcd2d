package draft

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	err = store.Save(Draft{
		SessionID:       "abc123",
		Text:            "fix the flaky watcher test",
		Attachments:     []string{"/repo/watcher.go"},
		Model:           "claude-sonnet-4",
		ThinkingEnabled: true,
		UpdatedAt:       1700000001,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load("abc123")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Text != "fix the flaky watcher test" {
		t.Fatalf("Text = %q, want %q", got.Text, "fix the flaky watcher test")
	}
	if len(got.Attachments) != 1 || got.Attachments[0] != "/repo/watcher.go" {
		t.Fatalf("Attachments = %v, want [/repo/watcher.go]", got.Attachments)
	}
	if !got.ThinkingEnabled {
		t.Fatalf("ThinkingEnabled = false, want true")
	}
	if got.UpdatedAt != 1700000001 {
		t.Fatalf("UpdatedAt = %d, want 1700000001", got.UpdatedAt)
	}
}

func TestStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	_, err = store.Load("missing")
	if !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("Load() error = %v, want ErrDraftNotFound", err)
	}
}

func TestStoreSaveEmptyDeletesDraft(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Save(Draft{SessionID: "s1", Text: "keep me"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(Draft{SessionID: "s1", Text: "   "}); err != nil {
		t.Fatalf("Save(empty) error = %v", err)
	}

	_, err = store.Load("s1")
	if !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("Load() after empty save error = %v, want ErrDraftNotFound", err)
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Save(Draft{SessionID: "s1", Text: "draft"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete("s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete("s1"); err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
}

func TestStoreRejectsInvalidSessionID(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if _, err := store.Load(id); err == nil {
			t.Fatalf("Load(%q) error = nil, want error", id)
		}
	}
}

func TestStoreListReturnsNewestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Save(Draft{SessionID: "s1", Text: "first"}); err != nil {
		t.Fatalf("Save(s1) error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := store.Save(Draft{SessionID: "s2", Text: "second"}); err != nil {
		t.Fatalf("Save(s2) error = %v", err)
	}

	got, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() count = %d, want 2", len(got))
	}
	if got[0].SessionID != "s2" || got[1].SessionID != "s1" {
		t.Fatalf("List() order = [%s %s], want [s2 s1]", got[0].SessionID, got[1].SessionID)
	}
	if _, err := os.Stat(got[0].Path); err != nil {
		t.Fatalf("draft file path not found: %v", err)
	}
	if filepath.Ext(got[0].Path) != ".json" {
		t.Fatalf("draft file ext = %q, want .json", filepath.Ext(got[0].Path))
	}
}
