package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mdmagic "github.com/nicholasgasior/mdmagic-go"
	"github.com/nicholasgasior/mdmagic-go/internal/config"
	"github.com/nicholasgasior/mdmagic-go/internal/vision"
)

var version = "dev"

var (
	cfgFile       string
	logLevel      string
	noOCR         bool
	noAI          bool
	noFrontMatter bool

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mdmagic",
	Short: "Convert documents to Markdown with extracted, described images",
	Long: `mdmagic converts PDF, DOCX, ODT, RTF, HTML, XLSX, XLS, plain text and image
files into Markdown. Embedded images are saved once per document next to the
output file and get alt text from OCR (tesseract) and an AI vision model when
those are available.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./mdmagic.yaml or ~/.mdmagic/mdmagic.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&noOCR, "no-ocr", false, "disable OCR")
	rootCmd.PersistentFlags().BoolVar(&noAI, "no-ai", false, "disable AI image descriptions")
	rootCmd.PersistentFlags().BoolVar(&noFrontMatter, "no-front-matter", false, "do not write YAML front matter")

	rootCmd.AddCommand(convertCmd, capabilitiesCmd, versionCmd, configCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = *loaded
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if noOCR {
		cfg.OCR.Enabled = false
	}
	if noAI {
		cfg.AI.Enabled = false
	}
	if noFrontMatter {
		cfg.Output.FrontMatter = false
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// newVision builds the image description engine from whatever backends the
// configuration enables and the machine provides.
func newVision(ctx context.Context) *vision.Engine {
	opts := []vision.Option{vision.WithLogger(logger)}
	if cfg.OCR.Enabled {
		if vision.DetectTesseract(ctx, cfg.OCR.TesseractPath) {
			opts = append(opts, vision.WithOCR(&vision.Tesseract{
				Path:     cfg.OCR.TesseractPath,
				Language: cfg.OCR.Language,
				Timeout:  cfg.OCR.Timeout,
			}))
		} else {
			logger.Info("tesseract not found, OCR disabled", "path", cfg.OCR.TesseractPath)
		}
	}
	if cfg.AI.Enabled {
		if strings.TrimSpace(cfg.AI.APIKey) != "" {
			opts = append(opts, vision.WithCaptioner(vision.NewOpenAICaptioner(vision.OpenAIConfig{
				APIKey:     cfg.AI.APIKey,
				Model:      cfg.AI.Model,
				Prompt:     cfg.AI.Prompt,
				MaxTokens:  cfg.AI.MaxTokens,
				MaxRetries: cfg.AI.MaxRetries,
				Timeout:    cfg.AI.Timeout,
				BaseURL:    cfg.AI.BaseURL,
			})))
		} else {
			logger.Info("no API key configured, AI descriptions disabled")
		}
	}
	return vision.New(opts...)
}

func newEngine(ctx context.Context) *mdmagic.Engine {
	return mdmagic.New(
		mdmagic.WithLogger(logger),
		mdmagic.WithVision(newVision(ctx)),
		mdmagic.WithFrontMatter(cfg.Output.FrontMatter),
		mdmagic.WithImageFolderSuffix(cfg.Output.ImageFolderSuffix),
	)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mdmagic %s\n", version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to mdmagic.yaml",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "mdmagic.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
