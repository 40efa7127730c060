package gemini

import (
	"context"
	"fmt"

	"medrelay-server-go/src/core/providers/googleai"
	"medrelay-server-go/src/core/providers/llm"

	"google.golang.org/genai"
)

// Provider Gemini LLM提供者
type Provider struct {
	*llm.BaseProvider
	generator googleai.ContentGenerator
}

// 注册提供者
func init() {
	llm.Register("gemini", NewProvider)
}

// NewProvider 创建Gemini提供者
func NewProvider(config *llm.Config) (llm.Provider, error) {
	if config.ModelName == "" {
		config.ModelName = googleai.DefaultModel
	}
	return &Provider{
		BaseProvider: llm.NewBaseProvider(config),
	}, nil
}

// Initialize 初始化提供者
func (p *Provider) Initialize() error {
	if p.generator != nil {
		return nil
	}
	config := p.Config()
	generator, err := googleai.NewContentGenerator(context.Background(), config.APIKey, config.BaseURL)
	if err != nil {
		return err
	}
	p.generator = generator
	return nil
}

// Generate types.LLMProvider接口实现
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	config := p.Config()
	resp, err := p.generator.GenerateContent(
		ctx,
		config.ModelName,
		googleai.UserContent(genai.NewPartFromText(prompt)),
		googleai.GenerationConfig(config.Temperature, config.TopP, config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("Gemini服务响应异常: %w", err)
	}
	return googleai.ResponseText(resp)
}
