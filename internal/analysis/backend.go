package analysis

import (
	"fmt"

	"github.com/ironsheep/image-calc-server/internal/config"
	"github.com/ironsheep/image-calc-server/internal/ocr"
)

// FromConfig builds the Analyzer selected by cfg.Analyzer.Backend.
func FromConfig(cfg *config.Config) (Analyzer, error) {
	a := cfg.Analyzer
	llm := LLMOptions{
		Model:        a.Model,
		MaxTokens:    a.MaxTokens,
		MaxDimension: a.MaxDimension,
		BaseURL:      a.BaseURL,
	}

	switch a.Backend {
	case config.BackendClaude:
		return NewClaudeAnalyzer(cfg.AnthropicAPIKey, llm), nil
	case config.BackendOpenAI:
		return NewOpenAIAnalyzer(cfg.OpenAIAPIKey, llm), nil
	case config.BackendTesseract:
		engine := ocr.NewEngine(a.OCRLanguage, a.TessdataPrefix)
		local := NewLocalAnalyzer(engine, a.MaxDimension, a.OCRConcurrency)
		local.MinConfidence = a.MinConfidence
		return local, nil
	default:
		return nil, fmt.Errorf("unknown analyzer backend %q", a.Backend)
	}
}
