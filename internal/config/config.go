// Package config loads converter settings from defaults, an optional YAML
// file and MDMAGIC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full converter configuration.
type Config struct {
	OCR      OCRConfig    `mapstructure:"ocr" yaml:"ocr"`
	AI       AIConfig     `mapstructure:"ai" yaml:"ai"`
	Output   OutputConfig `mapstructure:"output" yaml:"output"`
	LogLevel string       `mapstructure:"log_level" yaml:"log_level"`
}

// OCRConfig configures the tesseract backend.
type OCRConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	TesseractPath string        `mapstructure:"tesseract_path" yaml:"tesseract_path"`
	Language      string        `mapstructure:"language" yaml:"language"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AIConfig configures the caption backend. APIKey may reference the
// environment with ${VAR}.
type AIConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Prompt     string        `mapstructure:"prompt" yaml:"prompt,omitempty"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	MaxTokens  int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OutputConfig controls what is written next to the Markdown.
type OutputConfig struct {
	FrontMatter       bool   `mapstructure:"front_matter" yaml:"front_matter"`
	ImageFolderSuffix string `mapstructure:"image_folder_suffix" yaml:"image_folder_suffix"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OCR: OCRConfig{
			Enabled:       true,
			TesseractPath: "tesseract",
			Language:      "eng",
			Timeout:       30 * time.Second,
		},
		AI: AIConfig{
			Enabled:    true,
			Model:      "gpt-4o-mini",
			APIKey:     "${OPENAI_API_KEY}",
			MaxRetries: 2,
			MaxTokens:  50,
			Timeout:    60 * time.Second,
		},
		Output: OutputConfig{
			FrontMatter:       true,
			ImageFolderSuffix: "_images",
		},
		LogLevel: "info",
	}
}

// Load reads configuration. An explicit cfgFile must exist; otherwise
// mdmagic.yaml is looked up in the working directory and $HOME/.mdmagic and
// may be absent.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("MDMAGIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mdmagic")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.mdmagic")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AI.APIKey = ResolveEnvVars(cfg.AI.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("ocr.enabled", d.OCR.Enabled)
	v.SetDefault("ocr.tesseract_path", d.OCR.TesseractPath)
	v.SetDefault("ocr.language", d.OCR.Language)
	v.SetDefault("ocr.timeout", d.OCR.Timeout)
	v.SetDefault("ai.enabled", d.AI.Enabled)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.prompt", d.AI.Prompt)
	v.SetDefault("ai.max_retries", d.AI.MaxRetries)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("output.front_matter", d.Output.FrontMatter)
	v.SetDefault("output.image_folder_suffix", d.Output.ImageFolderSuffix)
	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.OCR),
		validation.Field(&c.AI),
		validation.Field(&c.Output),
	)
}

func (c OCRConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TesseractPath, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c AIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Model, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.MaxTokens, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c OutputConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ImageFolderSuffix, validation.Required, validation.By(noPathSeparator)),
	)
}

func noPathSeparator(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) {
		return errors.New("must not contain path separators")
	}
	return nil
}

var reEnvRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return reEnvRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes the default configuration as YAML to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# mdmagic configuration\n# ai.api_key may use ${ENV_VAR} syntax.\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
