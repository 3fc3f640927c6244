package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Inspector reads PDF structure (version, page count, encryption) with pdfcpu.
// It complements Reader, which only sees page text.
type Inspector struct{}

// NewInspector creates a new pdfcpu-backed inspector
func NewInspector() *Inspector {
	return &Inspector{}
}

// InspectFile reads the metadata of a PDF file
func (i *Inspector) InspectFile(path string) (*Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	return i.Inspect(file)
}

// InspectBytes reads the metadata of an in-memory PDF
func (i *Inspector) InspectBytes(data []byte) (*Metadata, error) {
	return i.Inspect(bytes.NewReader(data))
}

// Inspect reads the metadata of a PDF stream
func (i *Inspector) Inspect(rs io.ReadSeeker) (*Metadata, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: read PDF context: %v", ErrInvalidPDF, err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: page count: %v", ErrInvalidPDF, err)
	}

	meta := &Metadata{
		PageCount: ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
	}
	if ctx.HeaderVersion != nil {
		meta.Version = ctx.HeaderVersion.String()
	}

	return meta, nil
}
