package source

import (
	"errors"
	"testing"
)

func TestSyntheticFrameLimit(t *testing.T) {
	src := NewSynthetic(32, 24, 3)
	src.SetPeriod(0)
	defer src.Close()

	for i := 0; i < 3; i++ {
		f, err := src.Read()
		if err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if f.Width != 32 || f.Height != 24 {
			t.Errorf("Unexpected shape %dx%d", f.Width, f.Height)
		}
	}

	if _, err := src.Read(); !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted after limit, got %v", err)
	}
}

func TestSyntheticContentVaries(t *testing.T) {
	src := NewSynthetic(16, 16, 0)
	src.SetPeriod(0)
	defer src.Close()

	a, err := src.Read()
	if err != nil {
		t.Fatal(err)
	}
	b, err := src.Read()
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Consecutive synthetic frames should differ")
	}
}

func TestSyntheticDefaultDimensions(t *testing.T) {
	src := NewSynthetic(0, -1, 1)
	shape := src.Shape()
	if shape.Width != 640 || shape.Height != 480 {
		t.Errorf("Expected 640x480 fallback, got %dx%d", shape.Width, shape.Height)
	}
}

func TestSyntheticOpaqueAlpha(t *testing.T) {
	src := NewSynthetic(8, 8, 1)
	src.SetPeriod(0)
	f, err := src.Read()
	if err != nil {
		t.Fatal(err)
	}
	for i := 3; i < len(f.Pix); i += 4 {
		if f.Pix[i] != 255 {
			t.Fatalf("Pixel %d not opaque: %d", i/4, f.Pix[i])
		}
	}
}

func TestOpenSynthetic(t *testing.T) {
	src, err := Open(Config{Kind: "synthetic", Width: 64, Height: 48})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()
	if src.Shape().Width != 64 {
		t.Errorf("Expected width 64, got %d", src.Shape().Width)
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open(Config{Kind: "carrier-pigeon"}); err == nil {
		t.Error("Expected error for unknown source kind")
	}
}
