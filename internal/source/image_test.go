package source

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()

	img := image.NewGray(image.Rect(0, 0, 30, 20))
	img.SetGray(3, 4, color.Gray{Y: 255})
	for _, name := range []string{"b.png", "a.jpg"} {
		if err := Save(filepath.Join(dir, name), img); err != nil {
			t.Fatalf("Save %s failed: %v", name, err)
		}
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644)
	os.Mkdir(filepath.Join(dir, "masks"), 0755)

	src, err := NewImageSource(dir)
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Count() != 2 {
		t.Fatalf("Expected 2 images, got %d", src.Count())
	}
	if filepath.Base(src.Path(0)) != "a.jpg" {
		t.Errorf("Expected sorted paths, got %s first", src.Path(0))
	}

	w, h, err := src.Dimensions(1)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 30 || h != 20 {
		t.Errorf("Dimensions = %dx%d, want 30x20", w, h)
	}

	loaded, err := src.Load(1)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r, _, _, _ := loaded.At(3, 4).RGBA(); r>>8 != 255 {
		t.Errorf("PNG pixel lost: %v", loaded.At(3, 4))
	}
}

func TestImageSourceSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.png")
	if err := Save(path, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	src, err := NewImageSource(path)
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.Count() != 1 || src.Path(0) != path {
		t.Errorf("unexpected source %+v", src)
	}

	if _, err := NewImageSource(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for a missing path")
	}
}

func TestIsImage(t *testing.T) {
	for name, want := range map[string]bool{
		"a.JPG": true, "b.jpeg": true, "c.png": true, "d.gif": false, "e": false,
	} {
		if got := IsImage(name); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", name, got, want)
		}
	}
}
