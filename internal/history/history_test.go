package history

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)

	first := &Entry{Path: "/tmp/a.png", Mode: "screen", Backend: "gnome-shell"}
	second := &Entry{Path: "/tmp/b.png", Mode: "window", WindowShadow: true, DelaySeconds: 2}
	for _, e := range []*Entry{first, second} {
		if err := s.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Fatalf("unexpected ids %d, %d", first.ID, second.ID)
	}

	entries, err := s.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Path != "/tmp/b.png" || !entries[0].WindowShadow || entries[0].DelaySeconds != 2 {
		t.Fatalf("newest entry wrong: %+v", entries[0])
	}
	if entries[1].Backend != "gnome-shell" || entries[1].CreatedAt.IsZero() {
		t.Fatalf("oldest entry wrong: %+v", entries[1])
	}

	limited, err := s.List(1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(1) = %d entries, %v", len(limited), err)
	}
}

func TestPruneRemovesMissingFiles(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()

	kept := filepath.Join(dir, "kept.png")
	if err := os.WriteFile(kept, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{kept, filepath.Join(dir, "gone.png")} {
		if err := s.Record(&Entry{Path: p, Mode: "screen"}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	entries, _ := s.List(10)
	if len(entries) != 1 || entries[0].Path != kept {
		t.Fatalf("unexpected entries after prune: %+v", entries)
	}
}
