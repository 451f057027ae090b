package sign

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Decoders for the letter image formats the library accepts.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// framePalette is the palette every GIF frame is quantised to.
var framePalette = palette.Plan9

const (
	frameWidth   = 600
	frameHeight  = 400
	letterHeight = 300

	defaultFrameRate = 10
)

// Result describes a successfully rendered GIF artifact.
type Result struct {
	// Path is the filesystem path of the artifact.
	Path string `json:"gif_path"`

	// Filename is the artifact's base name, suitable for building a URL.
	Filename string `json:"filename"`

	// Text is the normalised (uppercased) text that was rendered.
	Text string `json:"text"`

	// Letters is the rendered letter sequence, spaces included.
	Letters []string `json:"letters"`

	// Duration is the total animation duration in seconds.
	Duration float64 `json:"duration"`
}

// MissingLettersError reports letters in the input that have no image in the
// library, along with the letters that are available.
type MissingLettersError struct {
	Missing   []string
	Available []string
}

func (e *MissingLettersError) Error() string {
	return "sign: missing letter images: " + strings.Join(e.Missing, ", ")
}

// RendererOption is a functional option for configuring a Renderer.
type RendererOption func(*Renderer)

// WithFrameRate sets the GIF frame rate. Defaults to 10 fps.
func WithFrameRate(fps int) RendererOption {
	return func(r *Renderer) { r.frameRate = fps }
}

// Renderer composites per-letter sign images into animated GIFs. Safe for
// concurrent use; each Render call works on its own frame buffers.
type Renderer struct {
	library   *Library
	outputDir string
	frameRate int
}

// NewRenderer creates a Renderer that reads letter images from library and
// writes artifacts to outputDir (created when absent).
func NewRenderer(library *Library, outputDir string, opts ...RendererOption) (*Renderer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("sign: create output dir %q: %w", outputDir, err)
	}
	r := &Renderer{
		library:   library,
		outputDir: outputDir,
		frameRate: defaultFrameRate,
	}
	for _, o := range opts {
		o(r)
	}
	if r.frameRate <= 0 {
		return nil, fmt.Errorf("sign: invalid frame rate %d", r.frameRate)
	}
	return r, nil
}

// Render converts text to an animated GIF by stitching letter images, each
// displayed for durationPerLetter seconds (spaces become blank frames). The
// text is uppercased first; letters without an image cause a
// [*MissingLettersError] before any frame is rendered.
func (r *Renderer) Render(text string, durationPerLetter float64) (*Result, error) {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return nil, fmt.Errorf("sign: empty text")
	}
	if durationPerLetter <= 0 {
		return nil, fmt.Errorf("sign: duration per letter %.2f must be positive", durationPerLetter)
	}

	letters := strings.Split(text, "")

	var missing []string
	for _, letter := range letters {
		if letter == " " {
			continue
		}
		if _, ok := r.library.Lookup(letter); !ok {
			missing = append(missing, letter)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingLettersError{Missing: missing, Available: r.library.Available()}
	}

	framesPerLetter := int(durationPerLetter * float64(r.frameRate))
	if framesPerLetter < 1 {
		framesPerLetter = 1
	}
	// GIF delays are expressed in hundredths of a second.
	delay := 100 / r.frameRate
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0}
	for i, letter := range letters {
		frame, err := r.renderFrame(letter, i, len(letters))
		if err != nil {
			return nil, err
		}
		paletted := palettize(frame)
		for range framesPerLetter {
			anim.Image = append(anim.Image, paletted)
			anim.Delay = append(anim.Delay, delay)
		}
	}

	path, err := r.writeGIF(anim)
	if err != nil {
		return nil, err
	}

	nonSpace := 0
	for _, letter := range letters {
		if letter != " " {
			nonSpace++
		}
	}

	slog.Info("gif rendered",
		"path", path,
		"letters", len(letters),
		"frames", len(anim.Image),
	)

	return &Result{
		Path:     path,
		Filename: filepath.Base(path),
		Text:     text,
		Letters:  letters,
		Duration: float64(nonSpace) * durationPerLetter,
	}, nil
}

// renderFrame draws one 600×400 frame: light-gray background, the letter
// image scaled to 300 px height and centred, plus the letter label, position
// counter, and a progress bar. Spaces produce a blank frame with overlays
// only.
func (r *Renderer) renderFrame(letter string, idx, total int) (*image.RGBA, error) {
	frame := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	bg := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	draw.Draw(frame, frame.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	if letter != " " {
		img, err := r.loadLetterImage(letter)
		if err != nil {
			return nil, err
		}
		scaled := scaleToHeight(img, letterHeight)
		b := scaled.Bounds()
		x := (frameWidth - b.Dx()) / 2
		y := (frameHeight - b.Dy()) / 2
		if x < 0 {
			x = 0
		}
		if y < 0 {
			y = 0
		}
		dst := image.Rect(x, y, min(frameWidth, x+b.Dx()), min(frameHeight, y+b.Dy()))
		draw.Draw(frame, dst, scaled, b.Min, draw.Src)
	}

	drawOverlays(frame, letter, idx, total)
	return frame, nil
}

// loadLetterImage opens and decodes the library image for letter.
func (r *Renderer) loadLetterImage(letter string) (image.Image, error) {
	path, ok := r.library.Lookup(letter)
	if !ok {
		return nil, fmt.Errorf("sign: no image for letter %q", letter)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sign: open letter image %q: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("sign: decode letter image %q: %w", path, err)
	}
	return img, nil
}

// writeGIF encodes anim to a timestamped file in the output directory,
// appending a sequence suffix when two renders land in the same second.
func (r *Renderer) writeGIF(anim *gif.GIF) (string, error) {
	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(r.outputDir, "sign_"+stamp+".gif")
	for seq := 1; ; seq++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(r.outputDir, fmt.Sprintf("sign_%s_%d.gif", stamp, seq))
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("sign: create gif %q: %w", path, err)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("sign: encode gif: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("sign: close gif %q: %w", path, err)
	}
	return path, nil
}

// scaleToHeight scales img to the target height preserving aspect ratio.
func scaleToHeight(img image.Image, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dy() == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	width := b.Dx() * height / b.Dy()
	if width < 1 {
		width = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// palettize converts an RGBA frame to a paletted image for GIF encoding.
func palettize(frame *image.RGBA) *image.Paletted {
	p := image.NewPaletted(frame.Bounds(), framePalette)
	draw.FloydSteinberg.Draw(p, frame.Bounds(), frame, image.Point{})
	return p
}

// drawOverlays adds the letter label, the position counter, and a progress
// bar to the frame.
func drawOverlays(frame *image.RGBA, letter string, idx, total int) {
	black := color.RGBA{A: 255}
	gray := color.RGBA{R: 100, G: 100, B: 100, A: 255}
	green := color.RGBA{G: 200, A: 255}

	drawText(frame, "Letter: "+letter, 20, 30, black)
	drawText(frame, fmt.Sprintf("%d/%d", idx+1, total), frameWidth-60, 30, gray)

	// Progress bar along the bottom edge.
	barWidth := (frameWidth - 40) * (idx + 1) / total
	fillRect(frame, image.Rect(20, frameHeight-30, 20+barWidth, frameHeight-10), green)
	strokeRect(frame, image.Rect(20, frameHeight-30, frameWidth-20, frameHeight-10), gray, 2)
}

// drawText renders s at (x, y) using the basic 7×13 bitmap face; y is the
// text baseline.
func drawText(dst *image.RGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// fillRect fills rect (clipped to dst) with c.
func fillRect(dst *image.RGBA, rect image.Rectangle, c color.Color) {
	draw.Draw(dst, rect.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// strokeRect draws a rectangle outline of the given thickness.
func strokeRect(dst *image.RGBA, rect image.Rectangle, c color.Color, thickness int) {
	t := thickness
	fillRect(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t), c)
	fillRect(dst, image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y), c)
	fillRect(dst, image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y), c)
	fillRect(dst, image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y), c)
}
