package ollama

import (
	"context"
	"fmt"
	"strings"

	"medrelay-server-go/src/core/providers/llm"

	"github.com/sashabaranov/go-openai"
)

// Provider Ollama LLM提供者，走Ollama的OpenAI兼容接口
type Provider struct {
	*llm.BaseProvider
	client *openai.Client
}

// 注册提供者
func init() {
	llm.Register("ollama", NewProvider)
}

// NewProvider 创建Ollama提供者
func NewProvider(config *llm.Config) (llm.Provider, error) {
	return &Provider{
		BaseProvider: llm.NewBaseProvider(config),
	}, nil
}

// Initialize 初始化提供者
func (p *Provider) Initialize() error {
	config := p.Config()
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		return fmt.Errorf("缺少Ollama基础URL配置")
	}
	if config.ModelName == "" {
		return fmt.Errorf("缺少Ollama模型名称配置")
	}

	// 确保URL以/v1结尾
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = baseURL + "/v1"
	}

	// Ollama不需要真正的API key，但openai客户端需要一个值
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL

	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Generate types.LLMProvider接口实现
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.ChatRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("Ollama服务响应异常: %w", err)
	}
	return llm.FirstChoice(resp)
}
