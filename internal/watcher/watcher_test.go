package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwaghorn2000/oxidex/internal/engine"
	"github.com/mwaghorn2000/oxidex/internal/service"
	"github.com/mwaghorn2000/oxidex/pkg/config"
)

func startWatcher(t *testing.T, svc *service.Service, root string) {
	t.Helper()
	w, err := New(svc, config.WatcherConfig{Debounce: 20 * time.Millisecond}, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(root); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()
}

// waitFor polls cond for up to two seconds.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func searchHits(svc *service.Service, term string) int {
	resp, err := svc.Search(context.Background(), term, 0)
	if err != nil {
		return -1
	}
	return resp.TotalHits
}

func TestCreateIndexesFile(t *testing.T) {
	dir := t.TempDir()
	svc := service.New(engine.New())
	startWatcher(t, svc, dir)

	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("cat dog"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return svc.TotalDocs() == 1 }, "created file never indexed")
	if hits := searchHits(svc, "cat"); hits != 1 {
		t.Errorf("cat hits = %d, want 1", hits)
	}
}

func TestWriteReindexesFile(t *testing.T) {
	dir := t.TempDir()
	svc := service.New(engine.New())

	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("cat"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddDocument(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	startWatcher(t, svc, dir)

	if err := os.WriteFile(path, []byte("dog dog"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return searchHits(svc, "dog") == 1 }, "rewrite never reindexed")
	if hits := searchHits(svc, "cat"); hits != 0 {
		t.Errorf("stale cat hits = %d, want 0", hits)
	}
	if svc.TotalDocs() != 1 {
		t.Errorf("TotalDocs = %d, want 1", svc.TotalDocs())
	}
}

func TestRemoveDropsFile(t *testing.T) {
	dir := t.TempDir()
	svc := service.New(engine.New())

	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("cat"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddDocument(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	startWatcher(t, svc, dir)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return svc.TotalDocs() == 0 }, "removed file never dropped")
}

func TestHiddenFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	svc := service.New(engine.New())
	startWatcher(t, svc, dir)

	if err := os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("cat"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "seen.txt"), []byte("cat"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return svc.TotalDocs() == 1 }, "visible file never indexed")
	// Give the hidden file's (never scheduled) debounce window time to pass.
	time.Sleep(100 * time.Millisecond)
	if svc.TotalDocs() != 1 {
		t.Errorf("TotalDocs = %d, want 1 (hidden file must stay out)", svc.TotalDocs())
	}
}

func TestNewDirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	svc := service.New(engine.New())
	startWatcher(t, svc, dir)

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Brief pause so the new directory's watch is installed before the file
	// lands in it.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("bird"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return svc.TotalDocs() == 1 }, "file in new directory never indexed")
}
