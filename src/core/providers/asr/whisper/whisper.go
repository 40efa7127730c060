package whisper

import (
	"context"
	"fmt"

	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI Whisper语音识别提供者
type Provider struct {
	*asr.BaseProvider
	client   *openai.Client
	model    string
	language string
}

// NewProvider 创建Whisper提供者
func NewProvider(config *asr.Config, logger *utils.Logger) (asr.Provider, error) {
	return &Provider{
		BaseProvider: asr.NewBaseProvider(config, logger),
		model:        config.String("model", openai.Whisper1),
		language:     config.String("language", ""),
	}, nil
}

// Initialize 初始化OpenAI客户端
func (p *Provider) Initialize() error {
	config := p.Config()
	apiKey := config.String("api_key", "")
	if apiKey == "" {
		return fmt.Errorf("missing OpenAI API key")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := config.String("url", ""); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Transcribe 上传音频文件进行识别
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: audioPath,
		Language: p.language,
	})
	if err != nil {
		return "", &asr.RequestError{Err: err, StatusCode: statusCode(err)}
	}

	text := utils.NormalizeTranscript(resp.Text)
	if text == "" {
		return "", asr.ErrUnrecognized
	}
	return text, nil
}

// statusCode 提取 go-openai 错误中的HTTP状态码
func statusCode(err error) int {
	switch e := err.(type) {
	case *openai.APIError:
		return e.HTTPStatusCode
	case *openai.RequestError:
		return e.HTTPStatusCode
	}
	return 0
}

func init() {
	asr.Register("whisper", NewProvider)
}
