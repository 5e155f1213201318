package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultCaptionModel  = "gpt-4o-mini"
	defaultCaptionPrompt = "Write one short sentence describing this image for a visually impaired reader. Do not start with \"An image of\"."
	defaultCaptionTokens = 50
)

// Captioner generates a short natural-language description of an image.
type Captioner interface {
	Name() string
	Caption(ctx context.Context, img image.Image) (string, error)
}

// OpenAIConfig holds configuration for the OpenAI caption backend.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	Prompt     string
	MaxTokens  int
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAICaptioner captions images with an OpenAI vision chat model. Decoding
// is deterministic (temperature 0) and repetition is discouraged.
type OpenAICaptioner struct {
	model      string
	prompt     string
	maxTokens  int
	maxRetries int
	retryDelay time.Duration
	client     openai.Client
}

// NewOpenAICaptioner creates a caption backend.
func NewOpenAICaptioner(cfg OpenAIConfig) *OpenAICaptioner {
	if cfg.Model == "" {
		cfg.Model = defaultCaptionModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = defaultCaptionPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultCaptionTokens
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// Caption does its own retrying.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAICaptioner{
		model:      cfg.Model,
		prompt:     cfg.Prompt,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     openai.NewClient(opts...),
	}
}

func (c *OpenAICaptioner) Name() string { return c.model }

func (c *OpenAICaptioner) Caption(ctx context.Context, img image.Image) (string, error) {
	uri, err := jpegDataURI(img)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(c.prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: uri}),
			}),
		},
		Temperature:         openai.Float(0),
		FrequencyPenalty:    openai.Float(0.5),
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	}

	var text string
	err = retry.Do(
		func() error {
			resp, err := c.client.Chat.Completions.New(ctx, params)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return retry.Unrecoverable(errors.New("caption response has no choices"))
			}
			text = resp.Choices[0].Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)
	if err != nil {
		return "", fmt.Errorf("openai caption: %w", err)
	}
	return text, nil
}

// isRetryable retries rate limits, server errors and transport failures.
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// jpegDataURI flattens img onto white, dropping any alpha channel, and
// encodes it as a base64 JPEG data URI.
func jpegDataURI(img image.Image) (string, error) {
	b := img.Bounds()
	rgb := image.NewRGBA(b)
	draw.Draw(rgb, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(rgb, b, img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
