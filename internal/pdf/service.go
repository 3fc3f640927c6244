package pdf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/pci-dss-extractor/internal/logging"
	"github.com/a3tai/pci-dss-extractor/internal/pdf/security"
	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
)

// Options configures a Service
type Options struct {
	MaxFileSize int64
	// Directory confines file access; empty allows any path (cli mode)
	Directory string
	Window    PageWindow
	Workers   int
	Logger    *zap.Logger
}

// Service turns PDF files into requirement extractions by orchestrating
// the text reader, the structure inspector and the extraction pipeline
type Service struct {
	reader        *Reader
	validator     *Validator
	inspector     *Inspector
	search        *Search
	pathValidator *security.PathValidator
	pipeline      *pipeline.Pipeline
	workers       int
	logger        *zap.Logger
}

// NewService creates a new PDF service with all components
func NewService(p *pipeline.Pipeline, opts Options) (*Service, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if opts.MaxFileSize <= 0 {
		return nil, fmt.Errorf("maximum file size must be positive")
	}

	var pathValidator *security.PathValidator
	if opts.Directory != "" {
		var err error
		if pathValidator, err = security.NewPathValidator(opts.Directory); err != nil {
			return nil, fmt.Errorf("failed to create path validator: %w", err)
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Service{
		reader:        NewReader(opts.MaxFileSize, opts.Window),
		validator:     NewValidator(opts.MaxFileSize),
		inspector:     NewInspector(),
		search:        NewSearch(opts.MaxFileSize),
		pathValidator: pathValidator,
		pipeline:      p,
		workers:       workers,
		logger:        logging.OrNop(opts.Logger),
	}, nil
}

// Pipeline returns the extraction pipeline
func (s *Service) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Directory returns the configured directory, empty when unconfined
func (s *Service) Directory() string {
	if s.pathValidator == nil {
		return ""
	}
	return s.pathValidator.Root()
}

// MaxFileSize returns the maximum file size limit
func (s *Service) MaxFileSize() int64 {
	return s.validator.MaxFileSize()
}

// Window returns the page window applied to every document
func (s *Service) Window() PageWindow {
	return s.reader.Window()
}

// ResolvePath makes path absolute and checks it against the configured directory
func (s *Service) ResolvePath(path string) (string, error) {
	if s.pathValidator != nil {
		resolved, err := s.pathValidator.Resolve(path)
		if err != nil {
			return "", fmt.Errorf("security validation failed: %w", err)
		}
		return resolved, nil
	}
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	return filepath.Abs(path)
}

// ReadText returns the text of a PDF file within the page window
func (s *Service) ReadText(path string) (*TextDocument, error) {
	resolved, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return s.reader.ReadFile(resolved)
}

// ExtractFile extracts the requirements of one PDF file. language forces
// the extraction language; empty means detect. A document without
// requirements returns the populated result together with an error
// wrapping pipeline.ErrNoRequirements.
func (s *Service) ExtractFile(ctx context.Context, path, language string) (*FileResult, error) {
	result := &FileResult{Path: path}

	resolved, err := s.ResolvePath(path)
	if err != nil {
		result.SetError(err)
		return result, err
	}
	result.Path = resolved

	doc, err := s.reader.ReadFile(resolved)
	if err != nil {
		result.SetError(err)
		return result, err
	}
	result.Document = doc

	if meta, err := s.inspector.InspectFile(resolved); err != nil {
		s.logger.Debug("pdf inspection failed", zap.String("path", resolved), zap.Error(err))
	} else {
		result.Metadata = meta
	}

	return s.run(ctx, result, doc, language)
}

// ExtractBytes extracts the requirements of an in-memory PDF
func (s *Service) ExtractBytes(ctx context.Context, name string, data []byte, language string) (*FileResult, error) {
	result := &FileResult{Path: name}

	doc, err := s.reader.ReadBytes(name, data)
	if err != nil {
		result.SetError(err)
		return result, err
	}
	result.Document = doc

	if meta, err := s.inspector.InspectBytes(data); err != nil {
		s.logger.Debug("pdf inspection failed", zap.String("name", name), zap.Error(err))
	} else {
		result.Metadata = meta
	}

	return s.run(ctx, result, doc, language)
}

func (s *Service) run(ctx context.Context, result *FileResult, doc *TextDocument, language string) (*FileResult, error) {
	res, err := s.pipeline.RunWithLanguage(ctx, doc.Text, language)
	result.Result = res
	if err != nil {
		result.SetError(err)
		return result, err
	}

	s.logger.Debug("pdf extracted",
		zap.String("path", result.Path),
		zap.Int("pages_read", doc.PagesRead()),
		zap.Ints("skipped_pages", doc.SkippedPages),
		zap.Int("requirements", res.Summary.Total))

	return result, nil
}

// ExtractFiles extracts many PDFs concurrently, at most Workers at a time.
// Per-file failures are recorded in the matching FileResult; the returned
// error is only set when ctx ends before all files were processed.
func (s *Service) ExtractFiles(ctx context.Context, paths []string, language string) ([]*FileResult, error) {
	results := make([]*FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = &FileResult{Path: path}
				results[i].SetError(err)
				return err
			}

			res, err := s.ExtractFile(gctx, path, language)
			results[i] = res
			if err != nil {
				s.logger.Warn("pdf extraction failed", zap.String("path", path), zap.Error(err))
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// ValidateFile checks that path is a readable PDF and reports its structure
func (s *Service) ValidateFile(path string) (*ValidationResult, error) {
	resolved, err := s.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	result := s.validator.ValidateFile(resolved)
	if !result.Valid {
		return result, nil
	}

	meta, err := s.inspector.InspectFile(resolved)
	if err != nil {
		result.Valid = false
		result.Message = err.Error()
		return result, nil
	}
	result.Metadata = meta
	return result, nil
}

// ListPDFs returns the PDFs below the configured directory, or below dir
// when given
func (s *Service) ListPDFs(dir string, limit int) ([]FileInfo, error) {
	if dir == "" {
		dir = s.Directory()
	}
	if dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if s.pathValidator != nil {
		if err := s.pathValidator.ValidateDirectory(dir); err != nil {
			return nil, fmt.Errorf("security validation failed: %w", err)
		}
	}
	return s.search.FindPDFs(dir, limit)
}
