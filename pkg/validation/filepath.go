package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is matched by every ValidationError
var ErrInvalidPath = errors.New("invalid path")

// maxNameLen bounds file names accepted by Validate
const maxNameLen = 255

// ValidationError describes a rejected name
type ValidationError struct {
	Name   string // Original user input
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("path validation failed: %s (input: %s)", e.Reason, e.Name)
}

// Is reports whether target is ErrInvalidPath
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPath
}

// PathValidator confines file names to a single directory. Only plain
// names are accepted; subdirectories are not.
type PathValidator struct {
	base         string
	resolvedBase string
}

// NewPathValidator creates a validator for base, which must be an existing
// directory. Relative paths are made absolute.
func NewPathValidator(base string) (*PathValidator, error) {
	if base == "" {
		return nil, errors.New("base path cannot be empty")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", abs)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve symbolic links in base path: %w", err)
	}
	return &PathValidator{base: abs, resolvedBase: resolved}, nil
}

// Base returns the absolute base directory
func (v *PathValidator) Base() string {
	return v.base
}

// Validate returns the absolute path of name inside the base directory, or
// a *ValidationError if name is not a plain file name or resolves outside
// the base.
func (v *PathValidator) Validate(name string) (string, error) {
	reject := func(reason string) (string, error) {
		return "", &ValidationError{Name: name, Reason: reason}
	}

	switch {
	case strings.TrimSpace(name) == "":
		return reject("name cannot be empty")
	case len(name) > maxNameLen:
		return reject(fmt.Sprintf("name exceeds %d bytes", maxNameLen))
	case strings.ContainsAny(name, `/\`):
		return reject("name cannot contain path separators")
	case name == "." || name == "..":
		return reject("name escapes allowed directory")
	case !filepath.IsLocal(name):
		return reject("name escapes allowed directory")
	}

	full := filepath.Join(v.resolvedBase, name)

	// an existing symlink must still point inside the base
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		rel, err := filepath.Rel(v.resolvedBase, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return reject("resolved path escapes base directory")
		}
		return resolved, nil
	}
	return full, nil
}
