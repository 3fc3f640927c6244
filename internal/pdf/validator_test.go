package pdf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/a3tai/pci-dss-extractor/internal/pdf/pdftest"
)

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	valid := pdftest.Write(t, dir, "saq.pdf", samplePages...)

	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "readme.txt")
	if err := os.WriteFile(text, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := NewValidator(1024 * 1024)

	tests := []struct {
		name  string
		path  string
		valid bool
	}{
		{"valid pdf", valid, true},
		{"empty path", "", false},
		{"missing file", filepath.Join(dir, "missing.pdf"), false},
		{"directory", dir, false},
		{"empty file", empty, false},
		{"not a pdf", text, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateFile(tt.path)
			if result.Valid != tt.valid {
				t.Errorf("ValidateFile(%q).Valid = %v, want %v (message %q)", tt.path, result.Valid, tt.valid, result.Message)
			}
			if !tt.valid && result.Message == "" {
				t.Error("expected a message for an invalid file")
			}
			if v.IsValidPDF(tt.path) != tt.valid {
				t.Errorf("IsValidPDF(%q) disagrees with ValidateFile", tt.path)
			}
		})
	}
}

func TestValidator_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "saq.pdf", samplePages...)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}

	v := NewValidator(info.Size() - 1)
	if err := v.ValidateFileInfo(path, info); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("ValidateFileInfo() error = %v, want ErrFileTooLarge", err)
	}
	if v.MaxFileSize() != info.Size()-1 {
		t.Errorf("MaxFileSize() = %d", v.MaxFileSize())
	}
}

func TestValidator_ValidateContent(t *testing.T) {
	v := NewValidator(1024 * 1024)
	data := pdftest.Build(samplePages...)

	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"valid", "saq.pdf", data, nil},
		{"upper case extension", "SAQ.PDF", data, nil},
		{"wrong extension", "saq.docx", data, ErrNotPDF},
		{"empty", "saq.pdf", nil, ErrEmptyFile},
		{"no header", "saq.pdf", []byte("1.1 Install controls"), ErrNotPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateContent(tt.file, tt.data)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateContent() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateContent() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasPDFExtension(t *testing.T) {
	cases := map[string]bool{
		"a.pdf":     true,
		"b.PDF":     true,
		"dir/c.Pdf": true,
		"d.pdf.txt": false,
		"pdf":       false,
		"":          false,
	}
	for name, want := range cases {
		if got := HasPDFExtension(name); got != want {
			t.Errorf("HasPDFExtension(%q) = %v, want %v", name, got, want)
		}
	}
}
