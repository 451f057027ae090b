package sign

import (
	"errors"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRenderer(t *testing.T, letters ...string) (*Renderer, string) {
	t.Helper()
	lettersDir := t.TempDir()
	for _, l := range letters {
		writeLetterFile(t, lettersDir, l+".png")
	}
	lib, err := NewLibrary(lettersDir)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	outDir := t.TempDir()
	r, err := NewRenderer(lib, outDir)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r, outDir
}

func TestRender_FrameCountAndGeometry(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t, "H", "I")

	res, err := r.Render("hi", 0.5)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	f, err := os.Open(res.Path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decode artifact: %v", err)
	}

	// 2 letters × 0.5 s × 10 fps = 10 frames.
	if len(anim.Image) != 10 {
		t.Errorf("got %d frames, want 10", len(anim.Image))
	}
	b := anim.Image[0].Bounds()
	if b.Dx() != 600 || b.Dy() != 400 {
		t.Errorf("frame size %dx%d, want 600x400", b.Dx(), b.Dy())
	}
	for _, d := range anim.Delay {
		if d != 10 {
			t.Errorf("frame delay = %d, want 10 (hundredths)", d)
			break
		}
	}
	if anim.LoopCount != 0 {
		t.Errorf("loop count = %d, want 0 (infinite)", anim.LoopCount)
	}
}

func TestRender_Result(t *testing.T) {
	t.Parallel()

	r, outDir := newTestRenderer(t, "A", "B")

	res, err := r.Render("ab ba", 0.5)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if res.Text != "AB BA" {
		t.Errorf("Text = %q, want %q", res.Text, "AB BA")
	}
	if len(res.Letters) != 5 {
		t.Errorf("Letters = %v, want 5 entries including the space", res.Letters)
	}
	// Spaces render as blank frames but do not count towards duration.
	if res.Duration != 2.0 {
		t.Errorf("Duration = %f, want 2.0", res.Duration)
	}
	if !strings.HasPrefix(res.Filename, "sign_") || !strings.HasSuffix(res.Filename, ".gif") {
		t.Errorf("Filename = %q, want sign_*.gif", res.Filename)
	}
	if filepath.Dir(res.Path) != outDir {
		t.Errorf("artifact written to %q, want %q", filepath.Dir(res.Path), outDir)
	}
}

func TestRender_MissingLetters(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t, "A")

	_, err := r.Render("abc", 0.5)
	var missing *MissingLettersError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want MissingLettersError", err)
	}
	if len(missing.Missing) != 2 || missing.Missing[0] != "B" || missing.Missing[1] != "C" {
		t.Errorf("Missing = %v, want [B C]", missing.Missing)
	}
	if len(missing.Available) != 1 || missing.Available[0] != "A" {
		t.Errorf("Available = %v, want [A]", missing.Available)
	}
}

func TestRender_SpacesNeedNoImage(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t, "A")

	if _, err := r.Render("a a", 0.1); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestRender_InvalidInput(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t, "A")

	if _, err := r.Render("   ", 0.5); err == nil {
		t.Error("expected error for blank text")
	}
	if _, err := r.Render("a", -1); err == nil {
		t.Error("expected error for negative duration")
	}
}

func TestRender_ShortDurationStillOneFrame(t *testing.T) {
	t.Parallel()

	r, _ := newTestRenderer(t, "A")

	res, err := r.Render("a", 0.01)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	f, err := os.Open(res.Path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	if len(anim.Image) != 1 {
		t.Errorf("got %d frames, want 1", len(anim.Image))
	}
}

func TestNewRenderer_InvalidFrameRate(t *testing.T) {
	t.Parallel()

	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	if _, err := NewRenderer(lib, t.TempDir(), WithFrameRate(0)); err == nil {
		t.Error("expected error for zero frame rate")
	}
}
