package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ironsheep/image-calc-server/internal/imaging"
	"github.com/openai/openai-go/v3"
	oaioption "github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAIAnalyzer sends the image to OpenAI's Chat Completions API.
type OpenAIAnalyzer struct {
	client       *openai.Client
	model        string
	maxTokens    int64
	maxDimension int
}

// NewOpenAIAnalyzer creates an OpenAI-backed Analyzer. extra options are
// appended after the API key and base URL.
func NewOpenAIAnalyzer(apiKey string, opts LLMOptions, extra ...oaioption.RequestOption) *OpenAIAnalyzer {
	clientOpts := []oaioption.RequestOption{oaioption.WithAPIKey(apiKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, oaioption.WithBaseURL(opts.BaseURL))
	}
	clientOpts = append(clientOpts, extra...)
	client := openai.NewClient(clientOpts...)

	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &OpenAIAnalyzer{
		client:       &client,
		model:        model,
		maxTokens:    maxTokens,
		maxDimension: opts.MaxDimension,
	}
}

// Analyze implements Analyzer.
func (o *OpenAIAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	data, mediaType, err := imaging.ForUpload(req.Image, o.maxDimension)
	if err != nil {
		return Result{}, err
	}

	prompt, err := userPrompt(req.Vars)
	if err != nil {
		return Result{}, err
	}

	imageURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		MaxCompletionTokens: openai.Int(o.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageURL,
				}),
			}),
		},
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("openai API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("openai: response did not include any choices")
	}

	return ParseModelOutput(resp.Choices[0].Message.Content), nil
}
