package gemini

import (
	"context"
	"fmt"
	"os"

	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/providers/googleai"
	"medrelay-server-go/src/core/utils"

	"google.golang.org/genai"
)

// UnintelligibleMarker 模型判定无法识别时返回的标记
const UnintelligibleMarker = "[unintelligible]"

// DefaultPrompt 转写指令
const DefaultPrompt = "Transcribe the speech in this audio verbatim. Reply with the transcript only. " +
	"If no speech can be understood, reply exactly " + UnintelligibleMarker + "."

// Provider 使用Gemini多模态模型转写音频
type Provider struct {
	*asr.BaseProvider
	generator googleai.ContentGenerator
	model     string
	prompt    string
}

// NewProvider 创建Gemini ASR提供者
func NewProvider(config *asr.Config, logger *utils.Logger) (asr.Provider, error) {
	return &Provider{
		BaseProvider: asr.NewBaseProvider(config, logger),
		model:        config.String("model_name", googleai.DefaultModel),
		prompt:       config.String("prompt", DefaultPrompt),
	}, nil
}

// Initialize 初始化Gemini客户端
func (p *Provider) Initialize() error {
	if p.generator != nil {
		return nil
	}
	config := p.Config()
	generator, err := googleai.NewContentGenerator(context.Background(), config.String("api_key", ""), config.String("url", ""))
	if err != nil {
		return err
	}
	p.generator = generator
	return nil
}

// Transcribe 识别音频文件
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("读取音频文件失败: %w", err)
	}

	format := utils.DetectAudioFormat(data)
	if format == "unknown" {
		return "", fmt.Errorf("%w: 无法识别的音频文件头", utils.ErrUnsupportedAudio)
	}

	resp, err := p.generator.GenerateContent(ctx, p.model,
		googleai.UserContent(
			genai.NewPartFromText(p.prompt),
			googleai.InlinePart(utils.AudioMIMEType(format), data),
		),
		&genai.GenerateContentConfig{Temperature: genai.Ptr(float32(0))},
	)
	if err != nil {
		return "", &asr.RequestError{Err: err}
	}

	text, err := googleai.ResponseText(resp)
	if err != nil {
		return "", &asr.RequestError{Err: err}
	}

	text = utils.NormalizeTranscript(text)
	if text == "" || utils.ContainsMarker(text, UnintelligibleMarker) {
		return "", asr.ErrUnrecognized
	}
	return text, nil
}

func init() {
	asr.Register("gemini", NewProvider)
}
