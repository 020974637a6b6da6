package cli

import (
	"testing"

	"github.com/dshills/llmflow/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestModelsCommands(t *testing.T) {
	setupConfigDir(t)

	res := runCLI(t, "", "models", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No models registered.")

	res = runCLI(t, "sk-test-key\n", "models", "add", "openai", "gpt-4", "--stdin")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "✓ Registered openai/gpt-4")
	assert.Contains(t, res.stdout, "stored in keyring as 'openai'")

	key, err := keyring.Get(storage.KeyringService, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", key)

	res = runCLI(t, "", "models", "add", "anthropic", "claude-3-opus", "--credential-ref", "anthropic")
	require.NoError(t, res.err)

	res = runCLI(t, "", "models", "add", "openai", "gpt-4")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "already registered")

	res = runCLI(t, "", "models", "list")
	require.NoError(t, res.err)
	assert.Regexp(t, `openai\s+gpt-4\s+openai \(set\)\s+registry`, res.stdout)
	assert.Regexp(t, `anthropic\s+claude-3-opus\s+anthropic \(missing\)\s+registry`, res.stdout)
	assert.NotContains(t, res.stdout, "sk-test-key")

	res = runCLI(t, "", "models", "remove", "openai", "gpt-4", "--delete-credential")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "✓ Removed openai/gpt-4")
	assert.Contains(t, res.stdout, "✓ Deleted keyring entry 'openai'")
	_, err = keyring.Get(storage.KeyringService, "openai")
	assert.ErrorIs(t, err, keyring.ErrNotFound)

	res = runCLI(t, "", "models", "remove", "openai", "gpt-4")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "model not registered")
}

func TestModelsAdd_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr string
	}{
		{"empty key", "\n", []string{"openai", "gpt-4", "--stdin"}, "cannot be empty"},
		{"whitespace key", " \t \n", []string{"openai", "gpt-4", "--stdin"}, "only whitespace"},
		{"bad credential ref", "", []string{"openai", "gpt-4", "--credential-ref", "a b"}, "invalid credential reference"},
		{"slash in provider", "", []string{"open/ai", "gpt-4"}, "cannot contain '/'"},
		{"exclusive flags", "", []string{"openai", "gpt-4", "--stdin", "--prompt"}, "none of the others"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupConfigDir(t)
			res := runCLI(t, tt.stdin, append([]string{"models", "add"}, tt.args...)...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.wantErr)

			list := runCLI(t, "", "models", "list")
			require.NoError(t, list.err)
			assert.Contains(t, list.stdout, "No models registered.")
		})
	}
}

func TestModelsList_ConfigProviders(t *testing.T) {
	dir := setupConfigDir(t)
	writeConfig(t, dir, "providers:\n  - provider: local\n    model: llama3\n")

	res := runCLI(t, "", "models", "list")
	require.NoError(t, res.err)
	assert.Regexp(t, `local\s+llama3\s+-\s+config`, res.stdout)
}

func TestIsOnlyWhitespace(t *testing.T) {
	tests := []struct {
		input []byte
		want  bool
	}{
		{nil, true},
		{[]byte(" \t\r\n"), true},
		{[]byte("  "), true},
		{[]byte(" x "), false},
		{[]byte{0xff}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isOnlyWhitespace(tt.input), "%q", tt.input)
	}
}
