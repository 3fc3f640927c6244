package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxTextSize caps the text kept from one document
const DefaultMaxTextSize = 10 * 1024 * 1024 // 10MB

// Reader extracts the plain text of PDF files page by page
type Reader struct {
	validator   *Validator
	maxTextSize int
	window      PageWindow
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64, window PageWindow) *Reader {
	return &Reader{
		validator:   NewValidator(maxFileSize),
		maxTextSize: DefaultMaxTextSize,
		window:      window,
	}
}

// Window returns the configured page window
func (r *Reader) Window() PageWindow {
	return r.window
}

// ReadFile extracts the text of a PDF file
func (r *Reader) ReadFile(path string) (*TextDocument, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := r.validator.ValidateFileInfo(path, fileInfo); err != nil {
		return nil, err
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	defer f.Close()

	return r.extract(path, pdfReader)
}

// ReadBytes extracts the text of an in-memory PDF, e.g. an HTTP upload
func (r *Reader) ReadBytes(name string, data []byte) (*TextDocument, error) {
	if err := r.validator.ValidateContent(name, data); err != nil {
		return nil, err
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	return r.extract(name, pdfReader)
}

// ReadFrom buffers src and extracts its text
func (r *Reader) ReadFrom(name string, src io.Reader) (*TextDocument, error) {
	limit := r.validator.MaxFileSize()
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return r.ReadBytes(name, data)
}

// extract concatenates the text of the pages inside the window, one
// newline between pages, remembering where each page starts
func (r *Reader) extract(name string, pdfReader *pdf.Reader) (*TextDocument, error) {
	numPages := pdfReader.NumPage()
	first, last, err := r.window.Resolve(numPages)
	if err != nil {
		return nil, err
	}

	doc := &TextDocument{
		Name:        name,
		TotalPages:  numPages,
		FirstPage:   first,
		LastPage:    last,
		PageOffsets: make([]int, 0, last-first+1),
	}

	var builder strings.Builder
	for pageNum := first; pageNum <= last; pageNum++ {
		doc.PageOffsets = append(doc.PageOffsets, builder.Len())

		content, ok := pageText(pdfReader, pageNum)
		if !ok {
			// Continue with other pages even if one fails
			doc.SkippedPages = append(doc.SkippedPages, pageNum)
			continue
		}

		if builder.Len()+len(content) > r.maxTextSize {
			remaining := r.maxTextSize - builder.Len()
			if remaining > 0 {
				builder.WriteString(truncateUTF8(content, remaining))
			}
			doc.LastPage = pageNum
			break
		}

		builder.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			builder.WriteByte('\n')
		}
	}

	doc.Text = builder.String()
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, name)
	}

	return doc, nil
}

// pageText returns the plain text of one page. Broken content streams
// make the pdf package panic, so the page is reported as unreadable instead.
func pageText(pdfReader *pdf.Reader, pageNum int) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return "", false
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return content, true
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
