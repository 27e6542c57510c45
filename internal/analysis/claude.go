package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ironsheep/image-calc-server/internal/imaging"
)

// DefaultClaudeModel is used when no model is configured.
const DefaultClaudeModel = "claude-sonnet-4-5-20250929"

// LLMOptions tunes the remote vision backends.
type LLMOptions struct {
	// Model overrides the backend's default model.
	Model string

	// MaxTokens caps the reply length.
	MaxTokens int64

	// MaxDimension caps the longest image edge sent upstream.
	MaxDimension int

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// ClaudeAnalyzer sends the image to Anthropic's Messages API.
type ClaudeAnalyzer struct {
	client       *anthropic.Client
	model        string
	maxTokens    int64
	maxDimension int
}

// NewClaudeAnalyzer creates a Claude-backed Analyzer. extra options are
// appended after the API key and base URL.
func NewClaudeAnalyzer(apiKey string, opts LLMOptions, extra ...option.RequestOption) *ClaudeAnalyzer {
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	clientOpts = append(clientOpts, extra...)
	client := anthropic.NewClient(clientOpts...)

	model := opts.Model
	if model == "" {
		model = DefaultClaudeModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &ClaudeAnalyzer{
		client:       &client,
		model:        model,
		maxTokens:    maxTokens,
		maxDimension: opts.MaxDimension,
	}
}

// Analyze implements Analyzer.
func (c *ClaudeAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	data, mediaType, err := imaging.ForUpload(req.Image, c.maxDimension)
	if err != nil {
		return Result{}, err
	}

	prompt, err := userPrompt(req.Vars)
	if err != nil {
		return Result{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(prompt),
			),
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("claude API call: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return ParseModelOutput(text.String()), nil
}
