// Package export writes extraction results to files: the JSON contract
// consumed by downstream tools and an XLSX workbook for reviewers.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/pci-dss-extractor/internal/logging"
	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
)

// Format is an output file format
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for formats other than json and xlsx
var ErrUnknownFormat = errors.New("unknown export format")

// maxNameAttempts bounds the suffixes tried when a filename is taken
const maxNameAttempts = 100

// ParseFormat accepts a format name in any case; empty means JSON
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s (valid: json, xlsx)", ErrUnknownFormat, s)
	}
}

// Encode renders result in format
func Encode(result *pipeline.Result, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := EncodeJSON(&buf, result); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatXLSX:
		return EncodeXLSX(result)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// Writer saves results into one output directory
type Writer struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// NewWriter creates a writer for dir. The directory is created on first write.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, now: time.Now, logger: logging.OrNop(logger)}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Write encodes result and saves it as pci_requirements_<code>_<timestamp>.<ext>.
// An existing file is never overwritten; a numeric suffix is added instead.
func (w *Writer) Write(result *pipeline.Result, format Format) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result cannot be nil")
	}

	data, err := Encode(result, format)
	if err != nil {
		return "", err
	}
	if format == FormatJSON {
		if err := ValidateJSON(data); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := pipeline.SuggestedFilename(result.Summary.LanguageDetection.Code, w.now(), string(format))
	path, err := w.create(name, data)
	if err != nil {
		return "", err
	}

	w.logger.Info("results saved",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("requirements", result.Summary.Total))
	return path, nil
}

func (w *Writer) create(name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 1; i <= maxNameAttempts; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(w.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("write %s: %w", candidate, werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("close %s: %w", candidate, cerr)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %s in %s", name, w.dir)
}
