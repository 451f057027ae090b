// Package sign renders transcript text into sign-language artifacts: an
// animated GIF composited from per-letter sign images, and (optionally) a
// timed sign-cue sequence from a phrase mapping.
package sign

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// imageExtensions lists the file extensions recognised when scanning the
// letters directory.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

// Library manages the directory of per-letter sign images. A file named
// "A.png" provides the image for the letter "A" (the base name is uppercased
// to form the key).
//
// Safe for concurrent use: reads take a shared lock, CRUD operations an
// exclusive one.
type Library struct {
	dir string

	mu      sync.RWMutex
	letters map[string]string // letter → file path
}

// NewLibrary creates a Library over dir, creating the directory when absent,
// and performs an initial scan.
func NewLibrary(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sign: create letters dir %q: %w", dir, err)
	}
	l := &Library{dir: dir}
	if err := l.Rescan(); err != nil {
		return nil, err
	}
	slog.Info("letter library loaded", "dir", dir, "letters", l.Count())
	return l, nil
}

// Dir returns the directory the library manages.
func (l *Library) Dir() string { return l.dir }

// Rescan rebuilds the letter index from the directory contents.
func (l *Library) Rescan() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("sign: read letters dir %q: %w", l.dir, err)
	}

	letters := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !hasImageExt(ext) {
			continue
		}
		letter := strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
		letters[letter] = filepath.Join(l.dir, name)
	}

	l.mu.Lock()
	l.letters = letters
	l.mu.Unlock()
	return nil
}

// Lookup returns the image path for letter (case-insensitive) and whether it
// exists.
func (l *Library) Lookup(letter string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	path, ok := l.letters[strings.ToUpper(letter)]
	return path, ok
}

// Available returns the sorted list of letters with an image.
func (l *Library) Available() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.letters))
	for letter := range l.letters {
		out = append(out, letter)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of letters with an image.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.letters)
}

// Add stores a new letter image read from r. ext selects the file extension
// (with or without leading dot) and must be a recognised image extension.
// An existing image for the same letter is replaced.
func (l *Library) Add(letter string, r io.Reader, ext string) error {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if letter == "" {
		return fmt.Errorf("sign: empty letter name")
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)
	if !hasImageExt(ext) {
		return fmt.Errorf("sign: unsupported image extension %q", ext)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop any previous file for this letter, which may use another
	// extension.
	if prev, ok := l.letters[letter]; ok {
		if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("sign: replace letter %q: %w", letter, err)
		}
	}

	path := filepath.Join(l.dir, letter+ext)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sign: create letter image %q: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("sign: write letter image %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sign: close letter image %q: %w", path, err)
	}

	l.letters[letter] = path
	return nil
}

// Remove deletes the image for letter. Removing an unknown letter is an
// error.
func (l *Library) Remove(letter string) error {
	letter = strings.ToUpper(strings.TrimSpace(letter))

	l.mu.Lock()
	defer l.mu.Unlock()

	path, ok := l.letters[letter]
	if !ok {
		return fmt.Errorf("sign: no image for letter %q", letter)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("sign: remove letter %q: %w", letter, err)
	}
	delete(l.letters, letter)
	return nil
}

func hasImageExt(ext string) bool {
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
