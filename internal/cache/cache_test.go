package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdeblois/crunch/internal/combo"
	"github.com/pdeblois/crunch/internal/replay"
)

func sampleCombos() []combo.Combo {
	return []combo.Combo{{
		Punish:     replay.Punish{StartFrame: 10, EndFrame: 20, KillDir: replay.DirUp},
		ReplayData: combo.ReplayData{AbsoluteReplayFilePath: "/test/file.slp"},
	}}
}

func TestCacheDisabled(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Store("/test/file.slp", 100, time.Now(), sampleCombos()); err != nil {
		t.Errorf("Store() on disabled cache returned error: %v", err)
	}

	combos, hit, err := c.Lookup("/test/file.slp", 100, time.Now())
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if hit || combos != nil {
		t.Errorf("Lookup() on disabled cache = (%v, %v), want (nil, false)", combos, hit)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")
	mtime := time.Unix(1609459200, 0)
	combos := sampleCombos()

	c1, err := Open(cachePath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := c1.Store("/test/file.slp", 1024, mtime, combos); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	c2, err := Open(cachePath)
	if err != nil {
		t.Fatalf("Open() second time failed: %v", err)
	}
	defer func() { _ = c2.Close() }()

	got, hit, err := c2.Lookup("/test/file.slp", 1024, mtime)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !hit {
		t.Fatal("Lookup() = miss, want hit")
	}
	if len(got) != len(combos) || got[0].Punish != combos[0].Punish {
		t.Errorf("Lookup() = %+v, want %+v", got, combos)
	}
}

func TestCacheMissOnMtimeChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")

	c1, _ := Open(cachePath)
	mtime := time.Unix(1609459200, 0)
	_ = c1.Store("/test/file.slp", 1024, mtime, sampleCombos())
	_ = c1.Close()

	c2, _ := Open(cachePath)
	defer func() { _ = c2.Close() }()

	_, hit, err := c2.Lookup("/test/file.slp", 1024, mtime.Add(time.Second))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if hit {
		t.Error("Lookup() with different mtime hit, want miss")
	}
}

func TestCacheMissOnSizeChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")
	mtime := time.Now()

	c1, _ := Open(cachePath)
	_ = c1.Store("/test/file.slp", 1024, mtime, sampleCombos())
	_ = c1.Close()

	c2, _ := Open(cachePath)
	defer func() { _ = c2.Close() }()

	_, hit, err := c2.Lookup("/test/file.slp", 2048, mtime)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if hit {
		t.Error("Lookup() with different size hit, want miss")
	}
}

func TestCacheMissOnPathChange(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")
	mtime := time.Now()

	c1, _ := Open(cachePath)
	_ = c1.Store("/test/original.slp", 1024, mtime, sampleCombos())
	_ = c1.Close()

	c2, _ := Open(cachePath)
	defer func() { _ = c2.Close() }()

	_, hit, err := c2.Lookup("/test/renamed.slp", 1024, mtime)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if hit {
		t.Error("Lookup() with different path hit, want miss")
	}
}

func TestSelfCleaning(t *testing.T) {
	tmpDir := t.TempDir()
	cachePath := filepath.Join(tmpDir, "cache.db")
	mtime := time.Now()

	c1, _ := Open(cachePath)
	_ = c1.Store("/a.slp", 100, mtime, sampleCombos())
	_ = c1.Store("/b.slp", 200, mtime, sampleCombos())
	_ = c1.Close()

	// Second run: only look up /a.slp, leaving /b.slp an orphan.
	c2, _ := Open(cachePath)
	_, _, _ = c2.Lookup("/a.slp", 100, mtime)
	_ = c2.Close()

	c3, _ := Open(cachePath)
	defer func() { _ = c3.Close() }()

	if _, hit, _ := c3.Lookup("/a.slp", 100, mtime); !hit {
		t.Error("/a.slp should still exist after self-cleaning")
	}
	if _, hit, _ := c3.Lookup("/b.slp", 200, mtime); hit {
		t.Error("/b.slp should have been cleaned")
	}
}

func TestMakeKeyDeterministic(t *testing.T) {
	mtime := time.Unix(1609459200, 123456789)
	key1 := makeKey("/test/file.slp", 1024, mtime)
	key2 := makeKey("/test/file.slp", 1024, mtime)
	if string(key1) != string(key2) {
		t.Error("makeKey() not deterministic")
	}
}

func TestCacheDirCreation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "a", "b", "c", "cache.db")

	c, err := Open(nestedPath)
	if err != nil {
		t.Fatalf("Open() failed with nested path: %v", err)
	}
	_ = c.Close()

	if _, err := os.Stat(filepath.Dir(nestedPath)); os.IsNotExist(err) {
		t.Error("cache directory was not created")
	}
}
