package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/yolo-augment/internal/config"
)

var envKeys = []string{
	"YOLOAUG_IMAGE_DIR", "YOLOAUG_LABEL_DIR", "YOLOAUG_ATTEMPTS", "YOLOAUG_SEED",
	"YOLOAUG_OUTPUT_DIR", "YOLOAUG_FORMAT", "YOLOAUG_QUALITY", "YOLOAUG_LOG_LEVEL",
}

// isolate points the home directory at a fresh location and clears the
// YOLOAUG_* environment for the duration of the test
func isolate(t *testing.T) afero.Fs {
	t.Helper()
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	return afero.NewMemMapFs()
}

func load(t *testing.T, fs afero.Fs, args ...string) (*config.Config, error) {
	t.Helper()
	a := newApp(fs)
	cmd := a.rootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	return a.loadConfig(cmd)
}

func writeConfig(t *testing.T, fs afero.Fs, path string, mutate func(*config.Config)) {
	t.Helper()
	cfg := config.Default()
	mutate(cfg)
	require.NoError(t, cfg.SaveToFile(fs, path))
}

func TestLoadConfigWithoutConfigFile(t *testing.T) {
	fs := isolate(t)

	cfg, err := load(t, fs, "--images", "x", "--labels", "y")
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Input.ImageDir)
	assert.Equal(t, "y", cfg.Input.LabelDir)
	assert.Equal(t, config.Default().Output, cfg.Output)
}

func TestLoadConfigUsesDefaultPathWhenPresent(t *testing.T) {
	fs := isolate(t)
	writeConfig(t, fs, config.GetConfigPath(), func(c *config.Config) { c.Augment.Attempts = 3 })

	cfg, err := load(t, fs)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Augment.Attempts)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	fs := isolate(t)
	writeConfig(t, fs, "conf/aug.yaml", func(c *config.Config) {
		c.Output.Format = "webp"
		c.Run.AllowMultiBox = true
	})

	cfg, err := load(t, fs, "--config", "conf/aug.yaml")
	require.NoError(t, err)
	assert.Equal(t, "webp", cfg.Output.Format)
	assert.True(t, cfg.Run.AllowMultiBox)
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	fs := isolate(t)

	_, err := load(t, fs, "--config", "nope.json")
	assert.Error(t, err)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	fs := isolate(t)
	writeConfig(t, fs, "aug.json", func(c *config.Config) {
		c.Augment.Attempts = 3
		c.Output.Dir = "from-file"
	})
	require.NoError(t, afero.WriteFile(fs, ".env", []byte("YOLOAUG_OUTPUT_DIR=from-dotenv\n"), 0o644))
	t.Setenv("YOLOAUG_ATTEMPTS", "6")

	cfg, err := load(t, fs, "--config", "aug.json")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Augment.Attempts)
	assert.Equal(t, "from-dotenv", cfg.Output.Dir)
}

func TestLoadConfigChangedFlagOverridesEnv(t *testing.T) {
	fs := isolate(t)
	t.Setenv("YOLOAUG_ATTEMPTS", "6")
	t.Setenv("YOLOAUG_FORMAT", "jpg")

	cfg, err := load(t, fs, "--attempts", "2", "--format", "webp", "--multi-box")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Augment.Attempts)
	assert.Equal(t, "webp", cfg.Output.Format)
	assert.True(t, cfg.Run.AllowMultiBox)
}

func TestLoadConfigUnchangedFlagKeepsEnv(t *testing.T) {
	fs := isolate(t)
	t.Setenv("YOLOAUG_ATTEMPTS", "6")
	t.Setenv("YOLOAUG_QUALITY", "70")

	cfg, err := load(t, fs, "--out", "elsewhere")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Augment.Attempts)
	assert.Equal(t, 70, cfg.Output.Quality)
	assert.Equal(t, "elsewhere", cfg.Output.Dir)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	fs := isolate(t)

	_, err := load(t, fs, "--attempts", "0")
	assert.Error(t, err)
}

func TestInitConfigWritesDefaults(t *testing.T) {
	fs := isolate(t)
	a := newApp(fs)
	root := a.rootCmd()
	root.SetArgs([]string{"init-config", "--output", "out/config.yaml"})
	require.NoError(t, root.Execute())

	cfg, err := config.LoadFromFile(fs, "out/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	// the init-config path does not leak into the root --config flag
	assert.Empty(t, a.configPath)
}
