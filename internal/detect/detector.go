// Package detect decides whether a PCI DSS text buffer is French or English
// by counting lexicon keyword hits.
package detect

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/pci-dss-extractor/internal/lexicon"
)

// DefaultLowConfidenceThreshold is the confidence under which a detection is reported as ambiguous
const DefaultLowConfidenceThreshold = 0.55

// Fallback reasons
const (
	FallbackNone       = ""
	FallbackNoKeywords = "no_keywords"
	FallbackTie        = "tie"
	FallbackForced     = "forced"
)

// Score is the keyword evidence collected for one language
type Score struct {
	Code       string  `json:"code"`
	Hits       int     `json:"hits"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of a language detection
type Result struct {
	Code                 string  `json:"code"`
	Name                 string  `json:"name"`
	NameEN               string  `json:"name_en"`
	ExtractorLabel       string  `json:"extractor"`
	Confidence           float64 `json:"confidence"`
	ConfidencePercentage string  `json:"confidence_percentage"`
	Fallback             bool    `json:"fallback"`
	FallbackReason       string  `json:"fallback_reason,omitempty"`
	LowConfidence        bool    `json:"low_confidence"`
	Scores               []Score `json:"scores,omitempty"`
}

// Detector scores text against every language of a lexicon set.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	set       *lexicon.Set
	threshold float64
}

// NewDetector creates a detector over the default French/English lexicon
func NewDetector() *Detector {
	return &Detector{set: lexicon.Default(), threshold: DefaultLowConfidenceThreshold}
}

// NewDetectorWithSet creates a detector over a custom lexicon set and threshold
func NewDetectorWithSet(set *lexicon.Set, threshold float64) (*Detector, error) {
	if set == nil {
		return nil, fmt.Errorf("lexicon set cannot be nil")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("low confidence threshold must be within [0,1], got %v", threshold)
	}
	return &Detector{set: set, threshold: threshold}, nil
}

// Threshold returns the low confidence threshold
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Detect returns the most likely language of text.
// It never fails: inconclusive evidence yields the fallback language.
func (d *Detector) Detect(text string) Result {
	prepared := Normalize(text)
	languages := d.set.Languages()

	scores := make([]Score, len(languages))
	total := 0
	for i, lang := range languages {
		hits := 0
		for _, kw := range lang.Keywords() {
			hits += CountWord(prepared, Normalize(kw))
		}
		scores[i] = Score{Code: lang.Code, Hits: hits}
		total += hits
	}

	if total > 0 {
		for i := range scores {
			scores[i].Confidence = float64(scores[i].Hits) / float64(total)
		}
	}

	fallback := d.set.Fallback()
	if total == 0 {
		return d.result(fallback, 0, FallbackNoKeywords, scores)
	}

	best := -1
	tied := false
	for i, s := range scores {
		switch {
		case best < 0 || s.Hits > scores[best].Hits:
			best = i
			tied = false
		case s.Hits == scores[best].Hits:
			tied = true
		}
	}

	if tied {
		// the fallback wins any tie, whether or not it took part in it
		fallbackScore := 0.0
		for _, s := range scores {
			if s.Code == fallback.Code {
				fallbackScore = s.Confidence
			}
		}
		return d.result(fallback, fallbackScore, FallbackTie, scores)
	}

	return d.result(languages[best], scores[best].Confidence, FallbackNone, scores)
}

// Describe builds a result for a language chosen without detection
func (d *Detector) Describe(code string) (Result, bool) {
	lang, ok := d.set.Lookup(code)
	if !ok {
		return Result{}, false
	}
	return d.result(lang, 1, FallbackForced, nil), true
}

func (d *Detector) result(lang lexicon.Language, confidence float64, reason string, scores []Score) Result {
	return Result{
		Code:                 lang.Code,
		Name:                 lang.Name,
		NameEN:               lang.NameEN,
		ExtractorLabel:       lang.ExtractorLabel,
		Confidence:           confidence,
		ConfidencePercentage: fmt.Sprintf("%.1f%%", confidence*100),
		Fallback:             reason == FallbackNoKeywords || reason == FallbackTie,
		FallbackReason:       reason,
		LowConfidence:        confidence < d.threshold,
		Scores:               scores,
	}
}

// Normalize prepares text for keyword matching: NFC composition, lower case,
// typographic apostrophes folded to ASCII.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u00a0", " ").Replace(text)
	return strings.ToLower(text)
}

// CountWord counts occurrences of word in text that are not embedded in a
// longer word. Both arguments are expected to be normalized.
func CountWord(text, word string) int {
	if word == "" {
		return 0
	}

	count := 0
	offset := 0
	for {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return count
		}
		start := offset + i
		end := start + len(word)
		if isBoundary(text, start, end) {
			count++
			offset = end
		} else {
			_, size := utf8.DecodeRuneInString(text[start:])
			offset = start + size
		}
		if offset >= len(text) {
			return count
		}
	}
}

func isBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
