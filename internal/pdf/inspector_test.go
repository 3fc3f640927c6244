package pdf

import (
	"errors"
	"testing"

	"github.com/a3tai/pci-dss-extractor/internal/pdf/pdftest"
)

func TestInspector_InspectBytes(t *testing.T) {
	meta, err := NewInspector().InspectBytes(pdftest.Build(samplePages...))
	if err != nil {
		t.Fatalf("InspectBytes() unexpected error: %v", err)
	}
	if meta.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", meta.PageCount)
	}
	if meta.Encrypted {
		t.Error("Encrypted = true, want false")
	}
	if meta.Version != "1.4" {
		t.Errorf("Version = %q, want 1.4", meta.Version)
	}
}

func TestInspector_InspectFile(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "saq.pdf", samplePages[:2]...)

	meta, err := NewInspector().InspectFile(path)
	if err != nil {
		t.Fatalf("InspectFile() unexpected error: %v", err)
	}
	if meta.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", meta.PageCount)
	}

	if _, err := NewInspector().InspectFile(dir + "/missing.pdf"); err == nil {
		t.Error("InspectFile(missing) expected error")
	}
}

func TestInspector_Garbage(t *testing.T) {
	_, err := NewInspector().InspectBytes([]byte("not a pdf at all"))
	if !errors.Is(err, ErrInvalidPDF) {
		t.Errorf("InspectBytes() error = %v, want ErrInvalidPDF", err)
	}
}
