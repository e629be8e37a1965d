package keystore

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, keys []string) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.txt")
	if keys != nil {
		if err := os.WriteFile(path, []byte(strings.Join(keys, "\n")), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewFileStore(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t, nil)
	if got := s.Load(); len(got) != 0 {
		t.Fatalf("Load() = %v, want empty", got)
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	s := newTestStore(t, []string{"K1", "", "  ", "K2", ""})
	got := s.Load()
	if len(got) != 2 || got[0] != "K1" || got[1] != "K2" {
		t.Fatalf("Load() = %v", got)
	}
}

func TestTakeOneRemovesKey(t *testing.T) {
	s := newTestStore(t, []string{"K1", "K2", "K3"})

	key, ok := s.TakeOne()
	if !ok || key == "" {
		t.Fatal("expected a key")
	}
	if got := s.Count(); got != 2 {
		t.Fatalf("Count() = %d after take, want 2", got)
	}
	for _, k := range s.Load() {
		if k == key {
			t.Fatalf("taken key %q still in file", key)
		}
	}
}

func TestTakeOneOnEmpty(t *testing.T) {
	s := newTestStore(t, nil)
	if _, ok := s.TakeOne(); ok {
		t.Fatal("TakeOne on empty store must fail")
	}
}

func TestConcurrentTakesAreDistinct(t *testing.T) {
	const n = 20
	keys := make([]string, n)
	for i := range keys {
		keys[i] = "K" + strings.Repeat("x", i+1)
	}
	s := newTestStore(t, keys)

	taken := make(chan string, n*2)
	var wg sync.WaitGroup
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if key, ok := s.TakeOne(); ok {
				taken <- key
			}
		}()
	}
	wg.Wait()
	close(taken)

	seen := make(map[string]bool)
	for key := range taken {
		if seen[key] {
			t.Fatalf("key %q issued twice", key)
		}
		seen[key] = true
	}
	if len(seen) != n {
		t.Fatalf("issued %d keys from a pool of %d", len(seen), n)
	}
	if got := s.Count(); got != 0 {
		t.Fatalf("Count() = %d, want 0", got)
	}
}

func TestAppend(t *testing.T) {
	s := newTestStore(t, []string{"K1"})
	if err := s.Append([]string{"K2", "K3"}); err != nil {
		t.Fatal(err)
	}
	got := s.Load()
	if len(got) != 3 || got[2] != "K3" {
		t.Fatalf("Load() = %v", got)
	}
}
