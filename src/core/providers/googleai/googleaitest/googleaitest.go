// Package googleaitest 提供 googleai.ContentGenerator 的测试替身
package googleaitest

import (
	"context"

	"google.golang.org/genai"
)

// GeneratorFunc 函数形式的 googleai.ContentGenerator
type GeneratorFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GenerateContent 实现 googleai.ContentGenerator
func (f GeneratorFunc) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f(ctx, model, contents, config)
}

// TextResponse 构造只含一段文本的正常响应
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		FinishReason: genai.FinishReasonStop,
	}}}
}
