package pdf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/a3tai/pci-dss-extractor/internal/pdf/pdftest"
)

func TestReader_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "saq_d.pdf", samplePages...)

	doc, err := NewReader(1024*1024, PageWindow{}).ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error: %v", err)
	}

	if doc.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", doc.TotalPages)
	}
	if doc.FirstPage != 1 || doc.LastPage != 3 || doc.PagesRead() != 3 {
		t.Errorf("window = %d-%d (%d pages), want 1-3", doc.FirstPage, doc.LastPage, doc.PagesRead())
	}
	if len(doc.PageOffsets) != 3 {
		t.Fatalf("PageOffsets = %v, want 3 entries", doc.PageOffsets)
	}
	if !strings.Contains(doc.Text, "Install and maintain network security controls") {
		t.Errorf("Text missing page 2 content: %q", doc.Text)
	}

	at := strings.Index(doc.Text, "1.2 Network")
	if at < 0 {
		t.Fatalf("Text missing page 3 content: %q", doc.Text)
	}
	if got := doc.PageAt(at); got != 3 {
		t.Errorf("PageAt(%d) = %d, want 3", at, got)
	}
}

func TestReader_PageWindow(t *testing.T) {
	data := pdftest.Build(samplePages...)

	doc, err := NewReader(1024*1024, PageWindow{Start: 2, End: 10}).ReadBytes("saq_d.pdf", data)
	if err != nil {
		t.Fatalf("ReadBytes() unexpected error: %v", err)
	}
	if doc.FirstPage != 2 || doc.LastPage != 3 {
		t.Errorf("window = %d-%d, want 2-3", doc.FirstPage, doc.LastPage)
	}
	if strings.Contains(doc.Text, "Questionnaire") {
		t.Errorf("Text contains page 1 content: %q", doc.Text)
	}

	_, err = NewReader(1024*1024, PageWindow{Start: 5}).ReadBytes("saq_d.pdf", data)
	if !errors.Is(err, ErrPageWindow) {
		t.Errorf("ReadBytes() error = %v, want ErrPageWindow", err)
	}
}

func TestReader_ReadFrom(t *testing.T) {
	data := pdftest.Build(samplePages...)

	doc, err := NewReader(1024*1024, PageWindow{}).ReadFrom("upload.pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrom() unexpected error: %v", err)
	}
	if doc.Name != "upload.pdf" {
		t.Errorf("Name = %s, want upload.pdf", doc.Name)
	}

	_, err = NewReader(100, PageWindow{}).ReadFrom("upload.pdf", bytes.NewReader(data))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ReadFrom() error = %v, want ErrFileTooLarge", err)
	}
}

func TestReader_Errors(t *testing.T) {
	dir := t.TempDir()
	r := NewReader(1024*1024, PageWindow{})

	if _, err := r.ReadFile(""); err == nil {
		t.Error("ReadFile(\"\") expected error")
	}
	if _, err := r.ReadFile(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("ReadFile(missing) expected error")
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("1.1 text"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadFile(txt); !errors.Is(err, ErrNotPDF) {
		t.Errorf("ReadFile(txt) error = %v, want ErrNotPDF", err)
	}

	broken := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(broken, []byte("%PDF-1.4\nthis is not a pdf body"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadFile(broken); !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("ReadFile(broken) error = %v, want ErrInvalidPDF", err)
	}

	if _, err := r.ReadBytes("blank.pdf", pdftest.Build("")); !errors.Is(err, ErrNoText) {
		t.Errorf("ReadBytes(blank) error = %v, want ErrNoText", err)
	}
}

func TestTruncateUTF8(t *testing.T) {
	s := "exigé"
	if got := truncateUTF8(s, 5); got != "exig" {
		t.Errorf("truncateUTF8() = %q, want %q", got, "exig")
	}
	if got := truncateUTF8(s, 10); got != s {
		t.Errorf("truncateUTF8() = %q, want %q", got, s)
	}
}
