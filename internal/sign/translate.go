package sign

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Phonetic correction thresholds for unmatched words: a Double Metaphone
// candidate is accepted at the lower Jaro-Winkler score, a pure string-
// similarity fallback needs the higher one.
const (
	phoneticThreshold = 0.70
	fuzzyThreshold    = 0.85
)

// Cue is one timed sign in a translated sequence.
type Cue struct {
	// Sign is the sign clip identifier (e.g., "sign_hello").
	Sign string `json:"sign"`

	// Start is the cue's offset from the start of the sequence, in seconds.
	Start float64 `json:"start"`

	// Duration is the cue's display time in seconds.
	Duration float64 `json:"duration"`
}

// mappingEntry is one sign reference in the phrase mapping file.
type mappingEntry struct {
	Sign     string  `json:"sign"`
	Duration float64 `json:"duration"`
}

// Translator converts transcript text into a timed sign-cue sequence using a
// phrase→signs mapping. Matching is longest-phrase-first (trigrams, then
// bigrams, then single words); words with no mapping are phonetically
// corrected against the vocabulary before being skipped.
//
// Read-only after construction; safe for concurrent use.
type Translator struct {
	mapping map[string][]mappingEntry

	// vocab holds the single-word mapping keys used for phonetic correction.
	vocab []string
}

// LoadTranslator reads a JSON mapping file of the form
//
//	{"hello": [{"sign": "sign_hello", "duration": 1.0}], ...}
//
// and returns a Translator over it.
func LoadTranslator(path string) (*Translator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sign: read mapping %q: %w", path, err)
	}
	var mapping map[string][]mappingEntry
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("sign: parse mapping %q: %w", path, err)
	}
	t := newTranslator(mapping)
	slog.Info("sign mapping loaded", "path", path, "phrases", len(mapping))
	return t, nil
}

func newTranslator(mapping map[string][]mappingEntry) *Translator {
	normalised := make(map[string][]mappingEntry, len(mapping))
	var vocab []string
	for phrase, entries := range mapping {
		key := strings.ToLower(strings.TrimSpace(phrase))
		if key == "" {
			continue
		}
		normalised[key] = entries
		if !strings.Contains(key, " ") {
			vocab = append(vocab, key)
		}
	}
	sort.Strings(vocab)
	return &Translator{mapping: normalised, vocab: vocab}
}

// Phrases returns the number of mapped phrases.
func (t *Translator) Phrases() int { return len(t.mapping) }

// Translate converts text into a timed cue sequence. Unmappable words are
// skipped; the result may be empty.
func (t *Translator) Translate(text string) []Cue {
	words := strings.Fields(strings.ToLower(text))

	var cues []Cue
	elapsed := 0.0

	appendEntries := func(entries []mappingEntry) {
		for _, e := range entries {
			d := e.Duration
			if d <= 0 {
				d = 1.0
			}
			cues = append(cues, Cue{Sign: e.Sign, Start: elapsed, Duration: d})
			elapsed += d
		}
	}

	i := 0
	for i < len(words) {
		matched := false
		// Longest phrase first: trigrams down to single words.
		for length := 3; length >= 1; length-- {
			if i+length > len(words) {
				continue
			}
			phrase := strings.Join(words[i:i+length], " ")
			if entries, ok := t.mapping[phrase]; ok {
				appendEntries(entries)
				i += length
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		// The word may be a mistranscription of a known sign; try a
		// phonetic correction before giving up on it.
		if corrected, ok := t.correct(words[i]); ok {
			appendEntries(t.mapping[corrected])
		}
		i++
	}
	return cues
}

// correct finds the vocabulary word most phonetically similar to word.
// A candidate sharing a Double Metaphone code is accepted at
// phoneticThreshold Jaro-Winkler similarity; otherwise a pure similarity
// match needs fuzzyThreshold.
func (t *Translator) correct(word string) (string, bool) {
	if len(t.vocab) == 0 || word == "" {
		return "", false
	}

	wp, ws := matchr.DoubleMetaphone(word)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, candidate := range t.vocab {
		cp, cs := matchr.DoubleMetaphone(candidate)
		phonetic := codeOverlap(wp, ws, cp, cs)
		score := matchr.JaroWinkler(word, candidate, false)

		if phonetic {
			if score >= phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = candidate, score, true
			}
		} else if !bestPhonetic && score >= fuzzyThreshold && score > bestScore {
			best, bestScore = candidate, score
		}
	}

	if best != "" {
		slog.Debug("phonetic sign correction", "word", word, "corrected", best, "score", bestScore)
		return best, true
	}
	return "", false
}

// codeOverlap reports whether the two Double Metaphone code pairs share at
// least one non-empty code.
func codeOverlap(ap, as, bp, bs string) bool {
	for _, a := range [2]string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || (bs != "" && a == bs) {
			return true
		}
	}
	return false
}
