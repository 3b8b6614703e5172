package storage

import (
	"context"
	"strings"
	"testing"
)

func TestFileStoreWriteRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	key, err := store.Write(context.Background(), AngleKey("job-1", "45-degree", ".png"), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if key != "angles/job-1/45-degree.png" {
		t.Fatalf("key = %q", key)
	}
	got, err := store.Read(context.Background(), key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "image-bytes" {
		t.Fatalf("Read = %q", got)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, key := range []string{"../escape.png", "a/../../escape.png", "", "."} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("Write(%q) must fail", key)
		}
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := UploadKey("j1", "reference", "jpg"); got != "uploads/j1/reference.jpg" {
		t.Fatalf("UploadKey = %q", got)
	}
	if got := AngleKey("j1", "Top View!", ""); !strings.HasPrefix(got, "angles/j1/top-view") {
		t.Fatalf("AngleKey = %q", got)
	}
}
