package validation

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	dir := t.TempDir()

	v, err := NewPathValidator(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, v.Base())

	_, err = NewPathValidator("")
	assert.Error(t, err)

	_, err = NewPathValidator(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0644))
	_, err = NewPathValidator(file)
	assert.Error(t, err)
}

func TestPathValidator_Validate(t *testing.T) {
	dir := t.TempDir()
	v, err := NewPathValidator(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain name", "My_Flow.json", false},
		{"dotted name", "v1.2.json", false},
		{"empty", "", true},
		{"blank", "  ", true},
		{"parent", "..", true},
		{"current", ".", true},
		{"traversal", "../escape.json", true},
		{"absolute", "/etc/passwd", true},
		{"subdirectory", "sub/flow.json", true},
		{"backslash", `sub\flow.json`, true},
		{"too long", strings.Repeat("a", 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Validate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPath))
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve))
				assert.Equal(t, tt.input, ve.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, filepath.Base(got))
		})
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on Windows")
	}
	base := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0644))
	require.NoError(t, os.Symlink(target, filepath.Join(base, "link.json")))

	v, err := NewPathValidator(base)
	require.NoError(t, err)

	_, err = v.Validate("link.json")
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Name: "../x", Reason: "name escapes allowed directory"}
	assert.Equal(t, "path validation failed: name escapes allowed directory (input: ../x)", err.Error())
}
