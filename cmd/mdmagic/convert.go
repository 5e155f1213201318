package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	mdmagic "github.com/nicholasgasior/mdmagic-go"
)

var (
	outputFile string
	outputDir  string
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>...",
	Short: "Convert one or more documents to Markdown",
	Long: `Convert documents one after another. Each output is written next to its
input as <name>.md unless -o or --output-dir is given; images go to
<name>_images/ beside the output. A failed file is reported and the rest are
still converted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (single input only)")
	convertCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for all outputs")
}

func runConvert(cmd *cobra.Command, args []string) error {
	if outputFile != "" && len(args) > 1 {
		return errors.New("-o can only be used with a single input")
	}
	ctx := cmd.Context()
	engine := newEngine(ctx)

	failed := 0
	for _, input := range args {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := outputPath(input)
		result, err := engine.ConvertFile(ctx, input, out)
		if err != nil {
			failed++
			logger.Error("conversion failed", "input", input, "reason", failureReason(err), "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", input, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s -> %s (%d images)\n", input, result.OutputPath, result.Images)
		for _, ie := range result.ImageErrors {
			logger.Warn("image fallback", "input", input, "reason", failureReason(ie), "error", ie.Err)
			fmt.Fprintf(cmd.ErrOrStderr(), "  ! image %d at %s: %s\n", ie.Occurrence, ie.Position, failureReason(ie))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(args))
	}
	return nil
}

// failureReason names the error class for log lines and warnings.
func failureReason(err error) string {
	switch {
	case mdmagic.IsUnsupportedFormat(err):
		return "unsupported format"
	case mdmagic.IsConversionError(err):
		return "converter failed"
	case mdmagic.IsPersistFailure(err):
		return "could not persist"
	case mdmagic.IsDescribeFailure(err):
		return "could not describe"
	}
	return "error"
}

func outputPath(input string) string {
	switch {
	case outputFile != "":
		return outputFile
	case outputDir != "":
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		return filepath.Join(outputDir, base+".md")
	}
	return ""
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show which image description backends are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		caps := newVision(cmd.Context()).Capabilities()
		w := cmd.OutOrStdout()
		if caps.OCR {
			fmt.Fprintf(w, "OCR:       %s (%s)\n", caps.OCREngine, cfg.OCR.Language)
		} else {
			fmt.Fprintln(w, "OCR:       not available")
		}
		if caps.Caption {
			fmt.Fprintf(w, "AI vision: %s\n", caps.CaptionModel)
		} else {
			fmt.Fprintln(w, "AI vision: not available")
		}
		if _, err := os.Stat(cfgFile); cfgFile != "" && err == nil {
			fmt.Fprintf(w, "Config:    %s\n", cfgFile)
		}
		return nil
	},
}
