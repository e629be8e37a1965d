package ledger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MICROWAVE-web/TgKeyBot/internal/domain"
)

func newTestLedger(t *testing.T) (*FileLedger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	return NewFileLedger(path, slog.New(slog.NewTextHandler(os.Stderr, nil))), path
}

func TestGetMissingUser(t *testing.T) {
	l, _ := newTestLedger(t)

	u, err := l.Get(context.Background(), "10")
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Fatalf("Get() = %+v, want nil for unknown user", u)
	}
}

func TestUpsertPersistsAcrossReload(t *testing.T) {
	l, path := newTestLedger(t)
	ctx := context.Background()

	err := l.Upsert(ctx, "10", func(u *domain.User) {
		u.ReferredBy = "11"
		u.LastKeyGrantedAt = 1700000000
	})
	if err != nil {
		t.Fatal(err)
	}

	// Новый инстанс читает тот же файл.
	reloaded := NewFileLedger(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	u, err := reloaded.Get(ctx, "10")
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.ReferredBy != "11" || u.LastKeyGrantedAt != 1700000000 {
		t.Fatalf("reloaded user = %+v", u)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	l.Upsert(ctx, "10", func(u *domain.User) { u.ReferredBy = "11" })

	u, _ := l.Get(ctx, "10")
	u.ReferredBy = "hacked"

	fresh, _ := l.Get(ctx, "10")
	if fresh.ReferredBy != "11" {
		t.Fatalf("mutation of a returned record leaked into the store: %+v", fresh)
	}
}

func TestLegacyFileWithFloatTimestamps(t *testing.T) {
	// users.json старого бота: дробные unix-секунды и пустой referal.
	path := filepath.Join(t.TempDir(), "users.json")
	legacy := `{"42": {"referal": "", "last_key_time": 1712345678.123}, "43": {"referal": "42"}}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewFileLedger(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ctx := context.Background()

	u, err := l.Get(ctx, "42")
	if err != nil || u == nil {
		t.Fatalf("Get(42) = %+v, %v", u, err)
	}
	if u.LastKeyGrantedAt < 1712345678 || u.LastKeyGrantedAt >= 1712345679 {
		t.Errorf("last_key_time = %v", u.LastKeyGrantedAt)
	}

	ref, _ := l.Get(ctx, "43")
	if ref == nil || ref.ReferredBy != "42" {
		t.Errorf("referal not preserved: %+v", ref)
	}
}

func TestCorruptedFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewFileLedger(path, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ids, err := l.AllIDs(context.Background())
	if err != nil || len(ids) != 0 {
		t.Fatalf("AllIDs() = %v, %v", ids, err)
	}
}

func TestAllIDs(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		l.Upsert(ctx, id, func(u *domain.User) {})
	}

	ids, err := l.AllIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("AllIDs() = %v", ids)
	}
}
