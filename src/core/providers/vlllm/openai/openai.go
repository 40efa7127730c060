package openai

import (
	"context"
	"fmt"

	"medrelay-server-go/src/core/image"
	"medrelay-server-go/src/core/providers/vlllm"
	"medrelay-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI Vision提供者
type Provider struct {
	*vlllm.BaseProvider
	client *openai.Client
}

// NewProvider 创建OpenAI VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	if config.ModelName == "" {
		config.ModelName = openai.GPT4oMini
	}
	return &Provider{
		BaseProvider: vlllm.NewBaseProvider(config, logger),
	}, nil
}

// Initialize 初始化OpenAI客户端
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// ResponseWithImage 使用OpenAI Vision API
func (p *Provider) ResponseWithImage(ctx context.Context, img *image.Normalized, text string) (string, error) {
	config := p.Config()

	// 构建包含图片的多模态消息
	visionMessage := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: text,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: img.DataURL(),
				},
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       config.ModelName,
		Messages:    []openai.ChatCompletionMessage{visionMessage},
		MaxTokens:   config.MaxTokens,
		Temperature: float32(config.Temperature),
		TopP:        float32(config.TopP),
	})
	if err != nil {
		p.Logger().Error("OpenAI Vision API调用失败", map[string]interface{}{
			"model_name": config.ModelName,
			"error":      err.Error(),
		})
		return "", fmt.Errorf("VLLLM服务响应异常: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI Vision响应中没有候选回复")
	}
	return resp.Choices[0].Message.Content, nil
}

// init 注册OpenAI VLLLM提供者
func init() {
	vlllm.Register("openai", NewProvider)
}
