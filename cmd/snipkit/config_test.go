package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectConfig_DefaultMissing(t *testing.T) {
	chdirTemp(t)
	cfg, err := loadProjectConfig("")
	require.NoError(t, err)
	assert.Equal(t, &ProjectConfig{}, cfg)
	assert.Equal(t, "en", cfg.locale())
}

func TestLoadProjectConfig_ExplicitMissing(t *testing.T) {
	chdirTemp(t)
	_, err := loadProjectConfig("nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadProjectConfig_Parse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /var/lib/snipkit/snipkit.db
asset_dir: /srv/snipkit
asset_base_url: https://cdn.example/snipkit
lang_dir: /etc/snipkit/lang
locale: de-AT
log_level: debug
call_log_path: /var/log/snipkit/calls.jsonl
show_preview: false
preview_cache_size: 16
max_sessions: 8
`), 0o644))

	cfg, err := loadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/snipkit/snipkit.db", cfg.DBPath)
	assert.Equal(t, "https://cdn.example/snipkit", cfg.AssetBaseURL)
	assert.Equal(t, "de-AT", cfg.locale())
	assert.Equal(t, 8, cfg.MaxSessions)

	opts := cfg.dialogueOptions()
	assert.False(t, opts.ShowPreview)
	assert.Equal(t, 16, opts.PreviewCacheSize)
}

func TestLoadProjectConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: [unclosed"), 0o644))
	_, err := loadProjectConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestDialogueOptions_Defaults(t *testing.T) {
	opts := (&ProjectConfig{}).dialogueOptions()
	assert.True(t, opts.ShowPreview)
	assert.Equal(t, 64, opts.PreviewCacheSize)
}

func TestFlagsOverrideConfig(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.MkdirAll(".snipkit", 0o755))
	require.NoError(t, os.WriteFile(defaultConfigPath, []byte("locale: en\nlog_level: nonsense\n"), 0o644))

	_, err := execute(t, "version")
	require.NoError(t, err, "--log-level on the command line wins over the file")

	out, err := execute(t, "render", "tip", "--preview", "--locale", "de")
	require.NoError(t, err)
	assert.Contains(t, out, "Tipp")
}

func TestBadLogLevel(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.MkdirAll(".snipkit", 0o755))
	require.NoError(t, os.WriteFile(defaultConfigPath, []byte("log_level: nonsense\n"), 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"version"})
	root.SetOut(&nopWriter{})
	root.SetErr(&nopWriter{})
	assert.Error(t, root.Execute())
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
