package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"github.com/menta2k/yolo-augment/internal/utils"
)

// Config holds the application configuration
type Config struct {
	Input   InputConfig   `json:"input" yaml:"input"`
	Augment AugmentConfig `json:"augment" yaml:"augment"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Run     RunConfig     `json:"run" yaml:"run"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// InputConfig locates the source dataset
type InputConfig struct {
	ImageDir string `json:"image_dir" yaml:"image_dir"`
	LabelDir string `json:"label_dir" yaml:"label_dir"`
}

// AugmentConfig holds the caller-tunable part of the augmentation
type AugmentConfig struct {
	Attempts int    `json:"attempts" yaml:"attempts"`
	Seed     uint64 `json:"seed" yaml:"seed"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Dir      string `json:"dir" yaml:"dir"`
	Format   string `json:"format" yaml:"format"`
	Quality  int    `json:"quality" yaml:"quality"`
	Lossless bool   `json:"lossless" yaml:"lossless"`
	Clean    bool   `json:"clean" yaml:"clean"`
	Debug    bool   `json:"debug" yaml:"debug"`
}

// RunConfig holds the error policy of a run
type RunConfig struct {
	FailFast      bool `json:"fail_fast" yaml:"fail_fast"`
	AllowMultiBox bool `json:"allow_multi_box" yaml:"allow_multi_box"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json" yaml:"json"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Input: InputConfig{
			ImageDir: "./images",
			LabelDir: "./labels",
		},
		Augment: AugmentConfig{
			Attempts: 10,
		},
		Output: OutputConfig{
			Dir:     "./output",
			Format:  "png",
			Quality: 90,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file on fs. Fields
// absent from the file keep their default values.
func LoadFromFile(fs afero.Fs, filename string) (*Config, error) {
	data, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as JSON or YAML, chosen by extension
func (c *Config) SaveToFile(fs afero.Fs, filename string) error {
	// Create directory if it doesn't exist
	if err := utils.EnsureDir(fs, filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(fs, filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from YOLOAUG_* variables. They are looked up in
// the process environment first and then in envFile on fs, which may be
// empty or missing. The process environment is not modified.
func (c *Config) ApplyEnv(fs afero.Fs, envFile string) error {
	fileVars, err := readEnvFile(fs, envFile)
	if err != nil {
		return err
	}
	lookup := func(key string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		return fileVars[key]
	}

	c.Input.ImageDir = getEnv(lookup, "YOLOAUG_IMAGE_DIR", c.Input.ImageDir)
	c.Input.LabelDir = getEnv(lookup, "YOLOAUG_LABEL_DIR", c.Input.LabelDir)
	c.Augment.Attempts = getEnvAsInt(lookup, "YOLOAUG_ATTEMPTS", c.Augment.Attempts)
	c.Augment.Seed = getEnvAsUint64(lookup, "YOLOAUG_SEED", c.Augment.Seed)
	c.Output.Dir = getEnv(lookup, "YOLOAUG_OUTPUT_DIR", c.Output.Dir)
	c.Output.Format = getEnv(lookup, "YOLOAUG_FORMAT", c.Output.Format)
	c.Output.Quality = getEnvAsInt(lookup, "YOLOAUG_QUALITY", c.Output.Quality)
	c.Log.Level = getEnv(lookup, "YOLOAUG_LOG_LEVEL", c.Log.Level)

	return nil
}

func readEnvFile(fs afero.Fs, envFile string) (map[string]string, error) {
	if envFile == "" {
		return nil, nil
	}
	f, err := fs.Open(envFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return vars, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input.ImageDir == "" {
		return fmt.Errorf("input.image_dir cannot be empty")
	}

	if c.Input.LabelDir == "" {
		return fmt.Errorf("input.label_dir cannot be empty")
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir cannot be empty")
	}

	if c.Augment.Attempts < 1 {
		return fmt.Errorf("augment.attempts must be positive")
	}

	switch strings.ToLower(c.Output.Format) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.format must be one of png, jpg, webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "yolo-augment", "config.json")
}

func isYAML(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func getEnv(lookup func(string) string, key, defaultValue string) string {
	if value := lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(lookup func(string) string, key string, defaultValue int) int {
	if value := lookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64(lookup func(string) string, key string, defaultValue uint64) uint64 {
	if value := lookup(key); value != "" {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}
