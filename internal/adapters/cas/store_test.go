package cas_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.trai.ch/mbuild/internal/adapters/cas"
	"go.trai.ch/mbuild/internal/core/domain"
)

func TestStore_PutAndGet(t *testing.T) {
	store, err := cas.NewStore(filepath.Join(t.TempDir(), cas.StoreFile))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	info := domain.BuildInfo{
		TaskName:   "aot:App:arm64:Foo.dll",
		InputHash:  "abc",
		OutputHash: "def",
		Timestamp:  time.Now(),
	}
	if err := store.Put(info); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(info.TaskName)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.InputHash != "abc" {
		t.Fatalf("expected stored info, got %+v", got)
	}

	missing, err := store.Get("unknown")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown task, got %+v, %v", missing, err)
	}
}

func TestStore_Persistence(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "nested", cas.StoreFile)

	store1, err := cas.NewStore(storePath)
	if err != nil {
		t.Fatalf("NewStore 1 failed: %v", err)
	}
	if err := store1.Put(domain.BuildInfo{TaskName: "task2", InputHash: "xyz"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	store2, err := cas.NewStore(storePath)
	if err != nil {
		t.Fatalf("NewStore 2 failed: %v", err)
	}
	got, err := store2.Get("task2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.InputHash != "xyz" {
		t.Errorf("expected InputHash xyz, got %+v", got)
	}
}

func TestStore_OmitZero(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), cas.StoreFile)
	store, err := cas.NewStore(storePath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Put(domain.BuildInfo{TaskName: "task_zero"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	content, err := os.ReadFile(storePath) //nolint:gosec // Test file with controlled path
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	jsonStr := string(content)

	for _, field := range []string{"input_hash", "output_hash", "timestamp"} {
		if strings.Contains(jsonStr, field) {
			t.Errorf("JSON should not contain %q for zero value", field)
		}
	}
	if !strings.Contains(jsonStr, "task_name") {
		t.Error("JSON should contain 'task_name'")
	}
}

func TestStore_Corrupt(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), cas.StoreFile)
	if err := os.WriteFile(storePath, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := cas.NewStore(storePath); err == nil {
		t.Fatal("expected error for corrupt store")
	}
}
