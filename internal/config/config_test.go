package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/explorer/internal/permissions"
	"github.com/fruitsalade/explorer/pkg/models"
)

// isolate keeps Load away from the developer's own config.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "explorer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, "/", cfg.HomePath)
	assert.Equal(t, models.ModeTree, cfg.Mode())
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.File)
	assert.IsType(t, permissions.AllowAll{}, cfg.Resolver())
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
base_url: https://gateway.example.com
view_mode: flat
page_size: 20
timeout: 5s
grants:
  - path: /Users/Docs
    level: owner
  - path: /
    level: read
`)
	t.Setenv("EXPLORER_PAGE_SIZE", "75")
	t.Setenv("EXPLORER_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("view-mode", "tree", "")
	flags.String("home-path", "/", "")
	require.NoError(t, flags.Parse([]string{"--home-path=/Users"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "https://gateway.example.com", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 75, cfg.PageSize, "env overrides file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/Users", cfg.HomePath, "changed flag overrides default")
	assert.Equal(t, models.ModeFlat, cfg.Mode(), "unchanged flag does not override file")

	resolver := cfg.Resolver()
	docs := &models.FolderItem{Type: models.TypeFolder, Path: "/Users/Docs/Drafts"}
	assert.Equal(t, models.AllPermissions(), resolver.Resolve(docs))
	other := &models.FolderItem{Type: models.TypeFolder, Path: "/Other"}
	assert.False(t, resolver.Resolve(other).CanEdit)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaseURL:  "https://gateway.example.com",
			Timeout:  time.Second,
			HomePath: "/",
			ViewMode: "tree",
			PageSize: 10,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, false},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://x" }, false},
		{"bad mode", func(c *Config) { c.ViewMode = "grid" }, false},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, false},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, false},
		{"relative home", func(c *Config) { c.HomePath = "Users" }, false},
		{"bad grant level", func(c *Config) { c.Grants = []Grant{{Path: "/", Level: "admin"}} }, false},
		{"relative grant path", func(c *Config) { c.Grants = []Grant{{Path: "x", Level: "read"}} }, false},
		{"good grant", func(c *Config) { c.Grants = []Grant{{Path: "/", Level: "write"}} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
