package providers

import (
	"context"

	"medrelay-server-go/src/core/image"
	"medrelay-server-go/src/core/types"
)

// Provider 所有提供者的基础接口
type Provider = types.Provider

// LLMProvider 大语言模型提供者接口
type LLMProvider interface {
	types.LLMProvider
}

// VLLLMProvider 视觉语言模型提供者接口
type VLLLMProvider interface {
	Provider
	// ResponseWithImage 发送文本和PNG图片，返回模型的完整文本回复
	ResponseWithImage(ctx context.Context, img *image.Normalized, text string) (string, error)
}

// ASRProvider 语音识别提供者接口
type ASRProvider interface {
	Provider
	// Transcribe 识别音频文件，返回识别文本
	Transcribe(ctx context.Context, audioPath string) (string, error)
}
