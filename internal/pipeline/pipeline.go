// Package pipeline runs one extraction: detect the language, pick its
// grammar, segment the text and summarize the requirements found.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/a3tai/pci-dss-extractor/internal/detect"
	"github.com/a3tai/pci-dss-extractor/internal/grammar"
	"github.com/a3tai/pci-dss-extractor/internal/lexicon"
	"github.com/a3tai/pci-dss-extractor/internal/logging"
	"github.com/a3tai/pci-dss-extractor/internal/segment"
)

// Summary counts the requirements of one run
type Summary struct {
	Total             int           `json:"total"`
	WithTests         int           `json:"with_tests"`
	WithGuidance      int           `json:"with_guidance"`
	TotalTests        int           `json:"total_tests"`
	LanguageDetection detect.Result `json:"language_detection"`
}

// Result is the serializable outcome of a run
type Result struct {
	Success      bool                  `json:"success"`
	Requirements []segment.Requirement `json:"requirements"`
	Summary      Summary               `json:"summary"`
	Warnings     []Warning             `json:"warnings,omitempty"`
}

// Options configures a Pipeline. The zero value uses the built-in
// French/English lexicon and the default confidence threshold.
type Options struct {
	// Lexicon overrides the built-in language set
	Lexicon *lexicon.Set
	// ForceLanguage skips detection and always uses this language code
	ForceLanguage string
	// LowConfidenceThreshold defaults to detect.DefaultLowConfidenceThreshold
	// when nil; 0 disables the low confidence warning
	LowConfidenceThreshold *float64
	// MinTestLength overrides segment.DefaultMinTestLength when positive
	MinTestLength int
	Logger        *zap.Logger
}

// Pipeline is immutable after New and safe for concurrent use
type Pipeline struct {
	detector   *detect.Detector
	registry   *grammar.Registry
	extractors map[string]*segment.Extractor
	codes      []string
	force      string
	logger     *zap.Logger
}

// Threshold returns a pointer to v, for Options.LowConfidenceThreshold
func Threshold(v float64) *float64 {
	return &v
}

// New builds a pipeline, compiling one extractor per language
func New(opts Options) (*Pipeline, error) {
	set := opts.Lexicon
	if set == nil {
		set = lexicon.Default()
	}
	threshold := detect.DefaultLowConfidenceThreshold
	if opts.LowConfidenceThreshold != nil {
		threshold = *opts.LowConfidenceThreshold
	}

	detector, err := detect.NewDetectorWithSet(set, threshold)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}

	registry := grammar.Default()
	if opts.Lexicon != nil {
		if registry, err = grammar.NewRegistry(set); err != nil {
			return nil, fmt.Errorf("create grammar registry: %w", err)
		}
	}

	if opts.ForceLanguage != "" {
		if _, ok := set.Lookup(opts.ForceLanguage); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, opts.ForceLanguage)
		}
	}

	var segOpts []segment.Option
	if opts.MinTestLength > 0 {
		segOpts = append(segOpts, segment.WithMinTestLength(opts.MinTestLength))
	}

	extractors := make(map[string]*segment.Extractor)
	for _, code := range set.Codes() {
		g, _ := registry.For(code)
		extractors[code] = segment.New(g, segOpts...)
	}

	return &Pipeline{
		detector:   detector,
		registry:   registry,
		extractors: extractors,
		codes:      set.Codes(),
		force:      opts.ForceLanguage,
		logger:     logging.OrNop(opts.Logger),
	}, nil
}

// Languages returns the supported language codes, fallback first
func (p *Pipeline) Languages() []string {
	return append([]string(nil), p.codes...)
}

// ForcedLanguage returns the language every Run uses, empty when detecting
func (p *Pipeline) ForcedLanguage() string {
	return p.force
}

// Threshold returns the confidence below which detection is ambiguous
func (p *Pipeline) Threshold() float64 {
	return p.detector.Threshold()
}

// Describe returns the detection record of a supported language
func (p *Pipeline) Describe(code string) (detect.Result, bool) {
	return p.detector.Describe(code)
}

// Detect reports the language of text without extracting anything
func (p *Pipeline) Detect(text string) detect.Result {
	return p.detector.Detect(text)
}

// Run extracts the requirements of text using the configured language policy
func (p *Pipeline) Run(ctx context.Context, text string) (*Result, error) {
	return p.RunWithLanguage(ctx, text, p.force)
}

// RunWithLanguage is Run with a per-call language override. An empty code
// means detect.
//
// A run that finds no requirement returns both the populated result and an
// *ExtractionError wrapping ErrNoRequirements. No retry with another
// language is attempted.
func (p *Pipeline) RunWithLanguage(ctx context.Context, text, code string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.ValidString(text) {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	var det detect.Result
	if code != "" {
		var ok bool
		if det, ok = p.detector.Describe(code); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, code)
		}
	} else {
		det = p.detector.Detect(text)
	}

	var warnings []Warning
	if det.LowConfidence {
		w := AmbiguousLanguageWarning(det, p.detector.Threshold())
		warnings = append(warnings, w)
		p.logger.Warn("ambiguous language detection",
			zap.String("code", det.Code),
			zap.Float64("confidence", det.Confidence),
			zap.Bool("fallback", det.Fallback),
			zap.String("fallback_reason", det.FallbackReason))
	}

	extractor, ok := p.extractors[det.Code]
	if !ok {
		g, _ := p.registry.For(det.Code)
		extractor = segment.New(g)
		warnings = append(warnings, Warning{
			Code:    WarningNoGrammar,
			Message: fmt.Sprintf("no grammar for language %s, using %s", det.Code, g.Label),
		})
	}

	reqs := extractor.Extract(text)
	result := &Result{
		Success:      len(reqs) > 0,
		Requirements: reqs,
		Summary:      Summarize(reqs, det),
		Warnings:     warnings,
	}

	p.logger.Info("extraction finished",
		zap.String("language", det.Code),
		zap.String("extractor", det.ExtractorLabel),
		zap.String("confidence", det.ConfidencePercentage),
		zap.Int("requirements", result.Summary.Total),
		zap.Int("tests", result.Summary.TotalTests))

	if len(reqs) == 0 {
		return result, &ExtractionError{Err: ErrNoRequirements, Detection: det}
	}
	return result, nil
}

// Summarize counts requirements, tests and guidance in a single pass
func Summarize(reqs []segment.Requirement, det detect.Result) Summary {
	s := Summary{Total: len(reqs), LanguageDetection: det}
	for _, r := range reqs {
		if r.HasTests() {
			s.WithTests++
		}
		if r.HasGuidance() {
			s.WithGuidance++
		}
		s.TotalTests += len(r.Tests)
	}
	return s
}

// FilenameTimeLayout is the timestamp layout embedded in suggested filenames
const FilenameTimeLayout = "20060102_150405"

// SuggestedFilename returns pci_requirements_<code>_<timestamp>.<ext>.
// The code segment is left out when code is empty or "unknown".
func SuggestedFilename(code string, at time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "json"
	}
	stamp := at.Format(FilenameTimeLayout)
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "unknown") {
		return fmt.Sprintf("pci_requirements_%s.%s", stamp, ext)
	}
	return fmt.Sprintf("pci_requirements_%s_%s.%s", code, stamp, ext)
}
