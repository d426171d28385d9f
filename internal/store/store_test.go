package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"atsquick/internal/config"
	"atsquick/internal/errors"
	"atsquick/internal/types"
)

func newTestLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)
}

type backend struct {
	name    string
	open    func(t *testing.T) Store
	corrupt func(t *testing.T, s Store)
}

func backends() []backend {
	return []backend{
		{
			name: "memory",
			open: func(t *testing.T) Store { return NewMemoryStore(newTestLogger()) },
			corrupt: func(t *testing.T, s Store) {
				m := s.(*MemoryStore)
				m.mu.Lock()
				m.payload = []byte(`{"score": 7`)
				m.mu.Unlock()
			},
		},
		{
			name: "file",
			open: func(t *testing.T) Store {
				s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "analysis.json"), newTestLogger())
				if err != nil {
					t.Fatalf("NewFileStore: %v", err)
				}
				return s
			},
			corrupt: func(t *testing.T, s Store) {
				if err := os.WriteFile(s.(*FileStore).Path(), []byte("not json at all"), 0600); err != nil {
					t.Fatalf("writing corrupt file: %v", err)
				}
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "analysis.db"), newTestLogger())
				if err != nil {
					t.Fatalf("NewSQLiteStore: %v", err)
				}
				return s
			},
			corrupt: func(t *testing.T, s Store) {
				_, err := s.(*SQLiteStore).db.Exec(
					"INSERT OR REPLACE INTO results (key, payload, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
					SlotKey, "[broken")
				if err != nil {
					t.Fatalf("writing corrupt row: %v", err)
				}
			},
		},
	}
}

func openBackend(t *testing.T, b backend) Store {
	t.Helper()
	s := b.open(t)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadEmptyReturnsAbsent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openBackend(t, b)
			if _, ok := s.Load(context.Background()); ok {
				t.Error("expected no result in a fresh store")
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	result := types.AnalysisResult{
		"score":       float64(82),
		"skills":      map[string]any{"Go": float64(90)},
		"jobMatches":  []any{"Backend Engineer"},
		"suggestions": []any{"Quantify impact"},
	}

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openBackend(t, b)
			ctx := context.Background()

			if err := s.Save(ctx, result); err != nil {
				t.Fatalf("Save: %v", err)
			}

			loaded, ok := s.Load(ctx)
			if !ok {
				t.Fatal("expected stored result")
			}
			if loaded["score"] != float64(82) {
				t.Errorf("expected score 82, got %v", loaded["score"])
			}
			skills, _ := loaded["skills"].(map[string]any)
			if skills["Go"] != float64(90) {
				t.Errorf("expected Go skill 90, got %v", loaded["skills"])
			}
		})
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openBackend(t, b)
			ctx := context.Background()

			if err := s.Save(ctx, types.AnalysisResult{"score": float64(40)}); err != nil {
				t.Fatalf("first Save: %v", err)
			}
			if err := s.Save(ctx, types.AnalysisResult{"score": float64(95)}); err != nil {
				t.Fatalf("second Save: %v", err)
			}

			loaded, ok := s.Load(ctx)
			if !ok || loaded["score"] != float64(95) {
				t.Errorf("expected last write to win, got %v", loaded)
			}
		})
	}
}

func TestClearRemovesResult(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openBackend(t, b)
			ctx := context.Background()

			if err := s.Save(ctx, types.AnalysisResult{"score": float64(60)}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if _, ok := s.Load(ctx); ok {
				t.Error("expected no result after Clear")
			}
			if err := s.Clear(ctx); err != nil {
				t.Errorf("second Clear should be a no-op, got %v", err)
			}
		})
	}
}

func TestCorruptDataLoadsAsAbsent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openBackend(t, b)
			b.corrupt(t, s)

			if _, ok := s.Load(context.Background()); ok {
				t.Error("expected corrupt data to load as absent")
			}
		})
	}
}

func TestSaveRejectsNilResult(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openBackend(t, b)
			if err := s.Save(context.Background(), nil); err == nil {
				t.Error("expected error saving nil result")
			}
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.json")
	ctx := context.Background()

	first, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := first.Save(ctx, types.AnalysisResult{"score": float64(77)}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second, err := NewFileStore(path, nil)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	loaded, ok := second.Load(ctx)
	if !ok || loaded["score"] != float64(77) {
		t.Errorf("expected result to survive reopening, got %v", loaded)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the store file to remain, found %d entries", len(entries))
	}
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		want    string
		wantErr bool
	}{
		{name: "memory", cfg: config.StoreConfig{Backend: "memory"}, want: "*store.MemoryStore"},
		{name: "file", cfg: config.StoreConfig{Backend: "file", Path: filepath.Join(dir, "a.json")}, want: "*store.FileStore"},
		{name: "sqlite", cfg: config.StoreConfig{Backend: "sqlite", Path: filepath.Join(dir, "a.db")}, want: "*store.SQLiteStore"},
		{name: "file without path", cfg: config.StoreConfig{Backend: "file"}, wantErr: true},
		{name: "unknown", cfg: config.StoreConfig{Backend: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			if got := typeName(s); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func typeName(s Store) string {
	switch s.(type) {
	case *MemoryStore:
		return "*store.MemoryStore"
	case *FileStore:
		return "*store.FileStore"
	case *SQLiteStore:
		return "*store.SQLiteStore"
	}
	return "unknown"
}
