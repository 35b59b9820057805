package tileindex

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/ironsheep/image-mosaic/internal/imaging"
)

func TestPersist_Format(t *testing.T) {
	idx := New()
	idx.Add(imaging.Color{R: 120, G: 80, B: 200}, "pool/b.jpg")
	idx.Add(imaging.Color{R: 0, G: 0, B: 0}, "pool/a.png")
	idx.Add(imaging.Color{R: 120, G: 80, B: 200}, "pool/c.jpg")

	path := filepath.Join(t.TempDir(), "cache", "index.json")
	if err := Persist(idx, path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read cache: %v", err)
	}
	want := `{
  "(0, 0, 0)": [
    "pool/a.png"
  ],
  "(120, 80, 200)": [
    "pool/b.jpg",
    "pool/c.jpg"
  ]
}
`
	if string(got) != want {
		t.Errorf("cache content:\n%s\nwant:\n%s", got, want)
	}
}

func TestPersist_StableBytes(t *testing.T) {
	idx := New()
	for i, c := range []imaging.Color{{R: 250, G: 0, B: 10}, {R: 30, G: 30, B: 30}, {R: 100, G: 20, B: 0}} {
		idx.Add(c, string(rune('a'+i))+".png")
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	if err := Persist(idx, first); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	reloaded, err := Load(first)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Persist(reloaded, second); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if !bytes.Equal(a, b) {
		t.Errorf("cache bytes differ after round trip:\n%s\n%s", a, b)
	}
}

func TestPersist_ReplacesPriorContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	os.WriteFile(path, []byte(`{"(10, 10, 10)": ["old.png"], "(20, 20, 20)": ["older.png"]}`), 0o644)

	idx := New()
	idx.Add(imaging.Color{R: 30, G: 30, B: 30}, "new.png")
	if err := Persist(idx, path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Records(), idx.Records()) {
		t.Errorf("stale content survived: %v", loaded.Records())
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the cache file, found %d entries", len(entries))
	}
}

func TestRoundTrip(t *testing.T) {
	pool := t.TempDir()
	writeTile(t, pool, "black.png", gray(0))
	writeTile(t, pool, "white.png", gray(250))
	writeTile(t, pool, "mid-a.png", gray(120))
	writeTile(t, pool, "mid-b.png", gray(118))

	built, _, err := Build(context.Background(), pool, BuildOptions{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "index.json")
	if err := Persist(built, path); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(built.Keys(), loaded.Keys()) {
		t.Fatalf("keys differ: %v vs %v", built.Keys(), loaded.Keys())
	}
	for _, k := range built.Keys() {
		a, _ := built.Get(k)
		b, _ := loaded.Get(k)
		a = append([]string(nil), a...)
		b = append([]string(nil), b...)
		sort.Strings(a)
		sort.Strings(b)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("bucket %s: got %v, want %v", k, b, a)
		}
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if errors.Is(err, ErrCorruptCache) {
		t.Error("a missing cache is not corrupt")
	}
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "this is not json"},
		{"truncated", `{"(0, 0, 0)": ["a.png"`},
		{"wrong shape", `["a.png"]`},
		{"empty object", `{}`},
		{"null", `null`},
		{"bad key", `{"0,0,0": ["a.png"]}`},
		{"code in key", `{"__import__('os')": ["a.png"]}`},
		{"empty bucket", `{"(0, 0, 0)": []}`},
		{"null bucket", `{"(0, 0, 0)": null}`},
		{"empty identifier", `{"(0, 0, 0)": [""]}`},
		{"non-string identifier", `{"(0, 0, 0)": [1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.json")
			os.WriteFile(path, []byte(tt.content), 0o644)

			_, err := Load(path)
			if !errors.Is(err, ErrCorruptCache) {
				t.Errorf("expected ErrCorruptCache, got %v", err)
			}
		})
	}
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, ErrCorruptCache) {
		t.Errorf("expected ErrCorruptCache for a directory, got %v", err)
	}
}

// countingReadDir wraps os.ReadDir and counts pool scans.
func countingReadDir(n *int) func(string) ([]os.DirEntry, error) {
	return func(name string) ([]os.DirEntry, error) {
		*n++
		return os.ReadDir(name)
	}
}

func TestEnsure_MissingCacheBuildsOnce(t *testing.T) {
	pool := t.TempDir()
	writeTile(t, pool, "a.png", gray(0))
	writeTile(t, pool, "b.png", gray(250))
	cacheDir := filepath.Join(t.TempDir(), "cache")
	cachePath := filepath.Join(cacheDir, "index.json")

	scans := 0
	opts := EnsureOptions{
		PoolDir:   pool,
		CachePath: cachePath,
		Build:     BuildOptions{ReadDir: countingReadDir(&scans)},
	}

	idx, res, err := Ensure(context.Background(), opts)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !res.Rebuilt || res.Reason != "missing" {
		t.Errorf("result: got %+v, want rebuilt/missing", res)
	}
	if scans != 1 {
		t.Errorf("pool scanned %d times, want 1", scans)
	}
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatalf("cache directory not created: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "index.json" {
		t.Errorf("expected exactly one cache file, found %v", entries)
	}

	again, res, err := Ensure(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Ensure failed: %v", err)
	}
	if res.Rebuilt || res.Reason != "loaded" {
		t.Errorf("second result: got %+v, want loaded", res)
	}
	if scans != 1 {
		t.Errorf("cached Ensure scanned the pool again (%d scans)", scans)
	}
	if !reflect.DeepEqual(idx.Records(), again.Records()) {
		t.Error("loaded index differs from built index")
	}
}

func TestEnsure_Force(t *testing.T) {
	pool := t.TempDir()
	writeTile(t, pool, "a.png", gray(0))
	cachePath := filepath.Join(t.TempDir(), "index.json")

	if _, _, err := Ensure(context.Background(), EnsureOptions{PoolDir: pool, CachePath: cachePath}); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	// The pool changes; only a forced rebuild notices.
	writeTile(t, pool, "b.png", gray(250))

	idx, res, err := Ensure(context.Background(), EnsureOptions{PoolDir: pool, CachePath: cachePath})
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if res.Rebuilt || idx.NumTiles() != 1 {
		t.Errorf("unforced Ensure should serve the stale cache, got %+v with %d tiles", res, idx.NumTiles())
	}

	idx, res, err = Ensure(context.Background(), EnsureOptions{PoolDir: pool, CachePath: cachePath, Force: true})
	if err != nil {
		t.Fatalf("forced Ensure failed: %v", err)
	}
	if !res.Rebuilt || res.Reason != "forced" || idx.NumTiles() != 2 {
		t.Errorf("forced Ensure: got %+v with %d tiles", res, idx.NumTiles())
	}

	loaded, err := Load(cachePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.NumTiles() != 2 {
		t.Errorf("cache not rewritten: %d tiles", loaded.NumTiles())
	}
}

func TestEnsure_CorruptCacheRebuilds(t *testing.T) {
	pool := t.TempDir()
	writeTile(t, pool, "a.png", gray(120))
	cachePath := filepath.Join(t.TempDir(), "index.json")
	os.WriteFile(cachePath, []byte("{broken"), 0o644)

	idx, res, err := Ensure(context.Background(), EnsureOptions{PoolDir: pool, CachePath: cachePath})
	if err != nil {
		t.Fatalf("Ensure should recover from a corrupt cache, got %v", err)
	}
	if !res.Rebuilt || res.Reason != "corrupt" {
		t.Errorf("result: got %+v, want rebuilt/corrupt", res)
	}
	if idx.NumTiles() != 1 {
		t.Errorf("NumTiles: got %d, want 1", idx.NumTiles())
	}
	if _, err := Load(cachePath); err != nil {
		t.Errorf("cache still unreadable after rebuild: %v", err)
	}
}

func TestEnsure_PoolEmptyWritesNothing(t *testing.T) {
	pool := t.TempDir()
	cachePath := filepath.Join(t.TempDir(), "index.json")

	_, _, err := Ensure(context.Background(), EnsureOptions{PoolDir: pool, CachePath: cachePath})
	if !errors.Is(err, ErrPoolEmpty) {
		t.Fatalf("expected ErrPoolEmpty, got %v", err)
	}
	if _, err := os.Stat(cachePath); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("no cache should be written for an empty pool, stat: %v", err)
	}
}
