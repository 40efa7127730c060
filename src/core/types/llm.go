package types

import "context"

// Provider 基础提供者接口
type Provider interface {
	Initialize() error
	Cleanup() error
}

// LLMProvider 大语言模型提供者接口
type LLMProvider interface {
	Provider
	// Generate 发送单轮提示词，返回模型的完整文本回复
	Generate(ctx context.Context, prompt string) (string, error)
}
