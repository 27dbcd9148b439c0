package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		filepath.Join(dir, "model-0.ckpt"),
		filepath.Join(dir, "model-2.ckpt"),
		filepath.Join(dir, "model-1.ckpt"),
	}
	for i, f := range files {
		os.WriteFile(f, []byte("test"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}
	os.WriteFile(filepath.Join(dir, "metrics.yaml"), []byte("x"), 0644)

	latest, err := FindLatest(dir, ".ckpt", false)
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if latest != files[len(files)-1] {
		t.Errorf("Expected latest to be %s, got %s", files[len(files)-1], latest)
	}

	if _, err := FindLatest(dir, ".png", false); err == nil {
		t.Error("Expected error when nothing matches")
	}
}

func TestFindLatestDirs(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "20260101-000000"), 0755)
	os.WriteFile(filepath.Join(dir, "file"), nil, 0644)

	latest, err := FindLatest(dir, "", true)
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if filepath.Base(latest) != "20260101-000000" {
		t.Errorf("got %s", latest)
	}
}

func TestImagePool(t *testing.T) {
	p := NewImagePool()

	img := p.Get(16, 8)
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Fatalf("Get returned %v", img.Bounds())
	}
	p.Put(img)
	p.Put(nil)

	other := p.Get(4, 4)
	if other.Bounds().Dx() != 4 {
		t.Errorf("pool mixed sizes: %v", other.Bounds())
	}
}

func TestSnapshot(t *testing.T) {
	r := Snapshot()
	if r.LogicalCPUs <= 0 {
		t.Errorf("LogicalCPUs = %d", r.LogicalCPUs)
	}
	t.Logf("Resources: %+v", r)

	if DefaultWorkers() <= 0 {
		t.Error("DefaultWorkers must be positive")
	}
}
