package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"medrelay-server-go/src/core/image"
	"medrelay-server-go/src/core/providers/vlllm"
	"medrelay-server-go/src/core/utils"
)

// DefaultBaseURL 默认Ollama地址
const DefaultBaseURL = "http://localhost:11434"

// Provider Ollama类型的VLLLM提供者，调用原生 /api/chat 接口
type Provider struct {
	*vlllm.BaseProvider
	httpClient *http.Client
}

// ChatRequest Ollama API请求结构
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatMessage Ollama消息结构
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64编码的图片
}

// ChatResponse Ollama API响应结构
type ChatResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Message   struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// NewProvider 创建Ollama VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	return &Provider{
		BaseProvider: vlllm.NewBaseProvider(config, logger),
		httpClient:   &http.Client{},
	}, nil
}

// Initialize 初始化提供者
func (p *Provider) Initialize() error {
	config := p.Config()
	// Ollama不需要API key，只需要确保有BaseURL
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.ModelName == "" {
		return fmt.Errorf("缺少Ollama视觉模型名称配置")
	}
	p.Logger().Debug("Ollama VLLLM初始化成功", map[string]interface{}{
		"base_url": config.BaseURL,
		"model":    config.ModelName,
	})
	return nil
}

func (p *Provider) options() map[string]interface{} {
	config := p.Config()
	options := map[string]interface{}{}
	if config.Temperature > 0 {
		options["temperature"] = config.Temperature
	}
	if config.TopP > 0 {
		options["top_p"] = config.TopP
	}
	if config.MaxTokens > 0 {
		options["num_predict"] = config.MaxTokens
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

// ResponseWithImage 使用Ollama Vision API
func (p *Provider) ResponseWithImage(ctx context.Context, img *image.Normalized, text string) (string, error) {
	config := p.Config()

	request := ChatRequest{
		Model: config.ModelName,
		Messages: []ChatMessage{{
			Role:    "user",
			Content: text,
			Images:  []string{img.Base64()}, // Ollama需要纯base64，不需要data URL前缀
		}},
		Stream:  false,
		Options: p.options(),
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("Ollama请求序列化失败: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimSuffix(config.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("创建Ollama请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.Logger().Info("向Ollama发送多模态请求", map[string]interface{}{
		"url":   url,
		"model": config.ModelName,
	})

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Ollama API调用失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Ollama响应失败: %w", err)
	}

	var chatResp ChatResponse
	decodeErr := json.Unmarshal(body, &chatResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && chatResp.Error != "" {
			return "", fmt.Errorf("Ollama API返回错误: %d %s", resp.StatusCode, chatResp.Error)
		}
		return "", fmt.Errorf("Ollama API返回错误: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("解析Ollama响应失败: %w", decodeErr)
	}
	return chatResp.Message.Content, nil
}

// init 注册Ollama VLLLM提供者
func init() {
	vlllm.Register("ollama", NewProvider)
}
