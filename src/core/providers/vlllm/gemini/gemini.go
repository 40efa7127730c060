package gemini

import (
	"context"
	"fmt"

	"medrelay-server-go/src/core/image"
	"medrelay-server-go/src/core/providers/googleai"
	"medrelay-server-go/src/core/providers/vlllm"
	"medrelay-server-go/src/core/utils"

	"google.golang.org/genai"
)

// Provider Gemini多模态提供者，文本段和PNG图片段放在同一条 user 消息中
type Provider struct {
	*vlllm.BaseProvider
	generator googleai.ContentGenerator
}

// NewProvider 创建Gemini VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	if config.ModelName == "" {
		config.ModelName = googleai.DefaultModel
	}
	return &Provider{
		BaseProvider: vlllm.NewBaseProvider(config, logger),
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

// ResponseWithImage 处理包含图片的请求
func (p *Provider) ResponseWithImage(ctx context.Context, img *image.Normalized, text string) (string, error) {
	config := p.Config()
	p.Logger().Debug("调用Gemini多模态接口", map[string]interface{}{
		"model_name": config.ModelName,
		"png_size":   len(img.PNG),
	})

	contents := googleai.UserContent(
		genai.NewPartFromText(text),
		googleai.InlinePart(img.MIMEType(), img.PNG),
	)
	resp, err := p.generator.GenerateContent(ctx, config.ModelName, contents,
		googleai.GenerationConfig(config.Temperature, config.TopP, config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("Gemini多模态服务响应异常: %w", err)
	}
	return googleai.ResponseText(resp)
}

// init 注册Gemini VLLLM提供者
func init() {
	vlllm.Register("gemini", NewProvider)
}
