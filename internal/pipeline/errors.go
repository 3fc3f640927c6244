package pipeline

import (
	"errors"
	"fmt"

	"github.com/a3tai/pci-dss-extractor/internal/detect"
)

var (
	// ErrEmptyInput is returned for empty or whitespace-only text
	ErrEmptyInput = errors.New("no content to analyze")
	// ErrInvalidInput is returned for text that is not valid UTF-8
	ErrInvalidInput = errors.New("input is not decodable UTF-8 text")
	// ErrNoRequirements is returned when the selected grammar matched no requirement
	ErrNoRequirements = errors.New("no requirements found")
	// ErrUnknownLanguage is returned when a forced language is not in the lexicon
	ErrUnknownLanguage = errors.New("unknown language")
)

// ExtractionError reports a run that finished without usable output.
// It carries the language detection so callers can decide on a retry.
type ExtractionError struct {
	Err       error
	Detection detect.Result
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%v (language %s, confidence %s)", e.Err, e.Detection.Code, e.Detection.ConfidencePercentage)
}

// Unwrap returns the underlying sentinel error
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is a hard input-validation failure
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUnknownLanguage)
}

// Warning codes
const (
	WarningAmbiguousLanguage = "ambiguous_language"
	WarningNoGrammar         = "no_grammar"
)

// Warning is a non-fatal diagnostic attached to a result
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AmbiguousLanguageWarning builds the warning reported when detection
// confidence is under the threshold
func AmbiguousLanguageWarning(det detect.Result, threshold float64) Warning {
	msg := fmt.Sprintf("language confidence %s is below %.0f%%, using %s", det.ConfidencePercentage, threshold*100, det.ExtractorLabel)
	if det.Fallback {
		msg += " as fallback"
	}
	return Warning{Code: WarningAmbiguousLanguage, Message: msg}
}
