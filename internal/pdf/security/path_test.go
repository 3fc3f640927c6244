package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewPathValidator(t *testing.T) {
	if _, err := NewPathValidator(""); err == nil {
		t.Error("Expected error for empty directory")
	}

	v, err := NewPathValidator("relative/pdfs")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !filepath.IsAbs(v.Root()) {
		t.Errorf("Root() = %s, want absolute path", v.Root())
	}
}

func TestPathValidator_ValidatePath(t *testing.T) {
	root := t.TempDir()
	v, err := NewPathValidator(root)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"root itself", root, false},
		{"file in root", filepath.Join(root, "saq_d.pdf"), false},
		{"nested file", filepath.Join(root, "2024", "fr", "saq_d.pdf"), false},
		{"parent traversal", filepath.Join(root, "..", "secret.pdf"), true},
		{"sibling with common prefix", root + "-other/saq_d.pdf", true},
		{"absolute outside", "/etc/passwd", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePath(tt.path)
			if tt.wantErr && err == nil {
				t.Errorf("ValidatePath(%q) expected error", tt.path)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidatePath(%q) unexpected error: %v", tt.path, err)
			}
		})
	}
}

func TestPathValidator_Symlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	target := filepath.Join(outside, "secret.pdf")
	if err := os.WriteFile(target, []byte("%PDF-1.7"), 0o600); err != nil {
		t.Fatalf("write target: %v", err)
	}
	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	v, _ := NewPathValidator(root)
	err := v.ValidatePath(link)
	if !errors.Is(err, ErrOutsideDirectory) {
		t.Errorf("ValidatePath(symlink) = %v, want ErrOutsideDirectory", err)
	}
}

func TestPathValidator_Resolve(t *testing.T) {
	root := t.TempDir()
	v, _ := NewPathValidator(root)

	got, err := v.Resolve("saq_d.pdf")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if want := filepath.Join(root, "saq_d.pdf"); got != want {
		t.Errorf("Resolve() = %s, want %s", got, want)
	}

	if _, err := v.Resolve("../escape.pdf"); !errors.Is(err, ErrOutsideDirectory) {
		t.Errorf("Resolve(../escape.pdf) = %v, want ErrOutsideDirectory", err)
	}

	got, err = v.Resolve("sub\x00dir/file.pdf")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if want := filepath.Join(root, "subdir", "file.pdf"); got != want {
		t.Errorf("Resolve() = %s, want %s", got, want)
	}

	if _, err := v.Resolve("   "); err == nil {
		t.Error("Resolve() expected error for blank path")
	}
}

func TestPathValidator_ValidateDirectory(t *testing.T) {
	root := t.TempDir()
	v, _ := NewPathValidator(root)

	if err := v.ValidateDirectory(filepath.Join(root, "not-yet")); err != nil {
		t.Errorf("ValidateDirectory() unexpected error for missing dir: %v", err)
	}

	file := filepath.Join(root, "file.pdf")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := v.ValidateDirectory(file); err == nil {
		t.Error("ValidateDirectory() expected error for a file")
	}

	if err := v.ValidateDirectory(filepath.Dir(root)); err == nil {
		t.Error("ValidateDirectory() expected error for the parent directory")
	}
}
