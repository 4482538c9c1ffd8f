package services

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestVideoStore_SaveOpenRemove(t *testing.T) {
	root := t.TempDir()
	store, err := NewVideoStore(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessionID := uuid.New()
	key, size, err := store.Save(sessionID, "Clip.MP4", strings.NewReader("0123456789"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 10 {
		t.Fatalf("expected size 10, got %d", size)
	}
	if !strings.HasPrefix(key, "sessions/"+sessionID.String()+"/") || !strings.HasSuffix(key, ".mp4") {
		t.Fatalf("unexpected key %q", key)
	}

	f, err := store.Open(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := io.ReadAll(f)
	f.Close()
	if string(b) != "0123456789" {
		t.Fatalf("unexpected content %q", b)
	}

	if err := store.Remove(key); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(key))); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed")
	}
	if err := store.Remove(key); err != nil {
		t.Fatalf("removing a missing file should be a no-op: %v", err)
	}
}

func TestVideoStore_RejectsOversizedFile(t *testing.T) {
	root := t.TempDir()
	store, _ := NewVideoStore(root)
	sessionID := uuid.New()

	_, _, err := store.Save(sessionID, "big.mp4", strings.NewReader("0123456789"), 5)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "sessions", sessionID.String()))
	if len(entries) != 0 {
		t.Fatalf("oversized upload must not be kept, found %d files", len(entries))
	}
}

func TestVideoStore_RejectsTraversal(t *testing.T) {
	store, _ := NewVideoStore(t.TempDir())

	for _, key := range []string{"", "../etc/passwd", "/etc/passwd", ".."} {
		if _, err := store.Open(key); !errors.Is(err, ErrInvalidFileKey) {
			t.Errorf("Open(%q): expected ErrInvalidFileKey, got %v", key, err)
		}
	}
}

func TestVideoStore_RemoveSession(t *testing.T) {
	root := t.TempDir()
	store, _ := NewVideoStore(root)
	sessionID := uuid.New()

	store.Save(sessionID, "a.mp4", strings.NewReader("a"), 10)
	store.Save(sessionID, "b.webm", strings.NewReader("b"), 10)

	if err := store.RemoveSession(sessionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "sessions", sessionID.String())); !os.IsNotExist(err) {
		t.Fatalf("expected session directory to be removed")
	}
}
