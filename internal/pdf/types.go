package pdf

import (
	"fmt"
	"sort"

	"github.com/a3tai/pci-dss-extractor/internal/pipeline"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// PageWindow restricts reading to an inclusive, 1-based page range.
// Zero on either side leaves that side open.
type PageWindow struct {
	Start int `json:"start,omitempty"`
	End   int `json:"end,omitempty"`
}

// Resolve returns the concrete first and last page of the window for a
// document with numPages pages. The end is clamped to the document.
func (w PageWindow) Resolve(numPages int) (first, last int, err error) {
	first, last = 1, numPages
	if w.Start > 0 {
		first = w.Start
	}
	if w.End > 0 && w.End < last {
		last = w.End
	}
	if numPages < 1 || first > last {
		return 0, 0, fmt.Errorf("%w: pages %d-%d of %d", ErrPageWindow, w.Start, w.End, numPages)
	}
	return first, last, nil
}

// TextDocument is the plain text of a PDF, pages concatenated in order
type TextDocument struct {
	Name       string `json:"name"`
	Text       string `json:"-"`
	TotalPages int    `json:"total_pages"`
	FirstPage  int    `json:"first_page"`
	LastPage   int    `json:"last_page"`
	// PageOffsets[i] is the byte offset in Text where page FirstPage+i starts
	PageOffsets []int `json:"-"`
	// SkippedPages lists pages whose text could not be decoded
	SkippedPages []int `json:"skipped_pages,omitempty"`
}

// PagesRead returns the number of pages in the window
func (d *TextDocument) PagesRead() int {
	if d.LastPage < d.FirstPage {
		return 0
	}
	return d.LastPage - d.FirstPage + 1
}

// PageAt returns the page number containing the byte offset, or 0 when
// the offset is outside the text
func (d *TextDocument) PageAt(offset int) int {
	if offset < 0 || offset > len(d.Text) || len(d.PageOffsets) == 0 {
		return 0
	}
	i := sort.Search(len(d.PageOffsets), func(i int) bool { return d.PageOffsets[i] > offset })
	if i == 0 {
		return 0
	}
	return d.FirstPage + i - 1
}

// Metadata is the structural information pdfcpu reads from a PDF
type Metadata struct {
	Version   string `json:"version"`
	PageCount int    `json:"page_count"`
	Encrypted bool   `json:"encrypted"`
}

// ValidationResult represents the result of a PDF validation operation
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Path     string    `json:"path"`
	Message  string    `json:"message,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// FileResult is the outcome of extracting requirements from one PDF
type FileResult struct {
	Path       string           `json:"path"`
	Document   *TextDocument    `json:"document,omitempty"`
	Metadata   *Metadata        `json:"metadata,omitempty"`
	Result     *pipeline.Result `json:"result,omitempty"`
	OutputPath string           `json:"output_path,omitempty"`
	Error      string           `json:"error,omitempty"`
	Err        error            `json:"-"`
}

// SetError records err on the result
func (r *FileResult) SetError(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}
