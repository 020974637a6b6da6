package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/llmflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_CreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	cfg, err := initConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, filepath.Join(dir, configFileName))
	assert.DirExists(t, filepath.Join(dir, "workflows"))

	// an existing file is left alone
	custom := "version: \"1.0\"\neditor:\n  scale_x: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(custom), 0644))
	cfg, err = initConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Editor.ScaleX)
	assert.Equal(t, 25.0, cfg.Editor.ScaleY)
	assert.Equal(t, "sqlite", cfg.Registry.Driver)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "providers",
			content: `version: "1.0"
providers:
  - provider: openai
    model: gpt-4
    credential_ref: openai
  - provider: local
    model: llama3
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []models.Provider{
					{ProviderName: "openai", Model: "gpt-4", CredentialRef: "openai"},
					{ProviderName: "local", Model: "llama3"},
				}, cfg.Providers)
			},
		},
		{
			name:    "mysql",
			content: "registry:\n  driver: mysql\n  dsn: user:pw@tcp(localhost:3306)/llmflow\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "user:pw@tcp(localhost:3306)/llmflow", cfg.DatabaseDSN("/ignored"))
			},
		},
		{
			name:    "mysql without dsn",
			content: "registry:\n  driver: mysql\n",
			wantErr: "registry.dsn is required",
		},
		{
			name:    "unknown driver",
			content: "registry:\n  driver: postgres\n",
			wantErr: "unsupported registry driver",
		},
		{
			name:    "invalid provider",
			content: "providers:\n  - provider: openai\n",
			wantErr: "providers[0]",
		},
		{
			name:    "not yaml",
			content: "editor: [",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), configFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := LoadConfig(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestDatabaseDSN_DefaultsToConfigDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/cfg", "llmflow.db"), DefaultConfig().DatabaseDSN("/cfg"))
}

func TestResolveConfigDir(t *testing.T) {
	t.Setenv(configDirEnv, "")
	assert.Equal(t, "/from/flag", resolveConfigDir("/from/flag"))

	t.Setenv(configDirEnv, "/from/env")
	assert.Equal(t, "/from/env", resolveConfigDir("/from/flag"))
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, err := newLogger(false, false, dir)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	logger, err = newLogger(true, true, dir)
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()
	assert.FileExists(t, filepath.Join(dir, logFileName))
}
