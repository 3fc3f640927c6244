// Package security keeps file access inside the directories the extractor
// was configured with.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the configured directory
var ErrOutsideDirectory = errors.New("path is outside configured directory")

// PathValidator confines paths to one root directory. Symlinks are resolved
// before the check so a link cannot point out of the root.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir. The directory does not
// have to exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	return &PathValidator{root: filepath.Clean(root)}, nil
}

// Root returns the absolute configured directory
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve returns the absolute form of path, interpreting relative paths
// against the root, and fails when the result leaves the root
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs := filepath.Clean(path)

	if err := v.ValidatePath(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ValidatePath checks that an absolute or working-directory-relative path
// lies inside the root
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if !within(v.root, abs) {
		return fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}

	// Compare real locations too, when both exist
	realRoot, err := filepath.EvalSymlinks(v.root)
	if err != nil {
		return nil //nolint:nilerr // root not created yet, nothing can link into it
	}
	realPath, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to evaluate symlinks: %w", err)
	}
	if !within(realRoot, realPath) {
		return fmt.Errorf("%w: %s resolves to %s", ErrOutsideDirectory, path, realPath)
	}

	return nil
}

// ValidateDirectory checks that dir lies inside the root and, when it
// exists, is a directory
func (v *PathValidator) ValidateDirectory(dir string) error {
	if err := v.ValidatePath(dir); err != nil {
		return err
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
