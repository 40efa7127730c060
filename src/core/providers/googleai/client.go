// Package googleai 封装 google.golang.org/genai 的内容生成调用，供 LLM、VLLLM、ASR 的 gemini 实现共用。
package googleai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel 未配置模型名时使用的 Gemini 模型
const DefaultModel = "gemini-2.5-flash"

// ErrNoCandidates 生成接口返回了空响应
var ErrNoCandidates = errors.New("Gemini未返回响应")

// ContentGenerator genai.Models 的最小接口，便于测试替换
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewContentGenerator 使用 API key 创建 Gemini API 客户端
func NewContentGenerator(ctx context.Context, apiKey, baseURL string) (ContentGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("缺少Gemini API key")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
	}
	return client.Models, nil
}

// GenerationConfig 根据采样参数构建请求配置，未设置的参数交给服务端默认值
func GenerationConfig(temperature, topP float64, maxTokens int) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if temperature > 0 {
		config.Temperature = genai.Ptr(float32(temperature))
	}
	if topP > 0 {
		config.TopP = genai.Ptr(float32(topP))
	}
	if maxTokens > 0 {
		config.MaxOutputTokens = int32(maxTokens)
	}
	return config
}

// UserContent 组装一条 user 角色的多段内容
func UserContent(parts ...*genai.Part) []*genai.Content {
	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
}

// InlinePart 将二进制数据包装为 InlineData 段
func InlinePart(mimeType string, data []byte) *genai.Part {
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	}
}

// ResponseText 拼接首个候选结果中的文本段，跳过思考内容。
// 没有候选结果或因长度截断而没有文本时返回空串，提示词被拦截或内容被过滤时返回错误
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", ErrNoCandidates
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("请求被Gemini拦截 (BlockReason: %s)", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", nil
	}

	candidate := resp.Candidates[0]
	var sb strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() > 0 {
		return sb.String(), nil
	}

	switch candidate.FinishReason {
	case genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReasonMaxTokens:
		return "", nil
	}
	return "", fmt.Errorf("Gemini生成异常终止 (FinishReason: %s)", candidate.FinishReason)
}
