package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// MaxFileSize returns the size limit in bytes
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// ValidateFile checks that path is a readable PDF. Validation failures are
// reported in the result, not as an error.
func (v *Validator) ValidateFile(path string) *ValidationResult {
	result := &ValidationResult{Path: path}

	if err := v.validatePDFFile(path); err != nil {
		result.Message = err.Error()
		return result
	}

	result.Valid = true
	return result
}

// validatePDFFile performs detailed validation on a PDF file
func (v *Validator) validatePDFFile(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return err
	}

	// Try to open the PDF to validate it's a valid PDF file
	f, _, err := pdf.Open(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer f.Close()

	return nil
}

// IsValidPDF performs a quick check to see if a file is a valid PDF
func (v *Validator) IsValidPDF(filePath string) bool {
	return v.validatePDFFile(filePath) == nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	if !HasPDFExtension(filePath) {
		return fmt.Errorf("%w: %s", ErrNotPDF, filePath)
	}
	return v.checkSize(filePath, fileInfo.Size())
}

// ValidateContent checks an in-memory upload: extension, size and header
func (v *Validator) ValidateContent(name string, data []byte) error {
	if !HasPDFExtension(name) {
		return fmt.Errorf("%w: %s", ErrNotPDF, name)
	}
	if err := v.checkSize(name, int64(len(data))); err != nil {
		return err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\n\r "), pdfMagic) {
		return fmt.Errorf("%w: %s has no PDF header", ErrNotPDF, name)
	}
	return nil
}

func (v *Validator) checkSize(name string, size int64) error {
	if size == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, name)
	}
	if size > v.maxFileSize {
		return fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrFileTooLarge, size, v.maxFileSize)
	}
	return nil
}

// HasPDFExtension reports whether name ends in .pdf, ignoring case
func HasPDFExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
