package pdf

import "errors"

var (
	// ErrNotPDF is returned for files without a .pdf extension or %PDF header
	ErrNotPDF = errors.New("file is not a PDF")
	// ErrInvalidPDF is returned when the PDF structure cannot be parsed
	ErrInvalidPDF = errors.New("invalid PDF file")
	// ErrFileTooLarge is returned when a file exceeds the configured size limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyFile is returned for zero-byte files
	ErrEmptyFile = errors.New("file is empty")
	// ErrNoText is returned when no page yielded any text
	ErrNoText = errors.New("no text content could be extracted from PDF")
	// ErrPageWindow is returned when the page window lies outside the document
	ErrPageWindow = errors.New("page window outside document")
)
