package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/utils"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultLanguage 默认识别语言
	DefaultLanguage = "en-US"
	// SampleRate 上传前统一的采样率
	SampleRate = 16000
)

// recognizer 同步识别接口，由 *speech.Client 实现
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// Provider Google语音识别提供者，调用 Cloud Speech-to-Text v1 同步识别
type Provider struct {
	*asr.BaseProvider
	apiKey   string
	endpoint string
	language string
	client   recognizer
}

// NewProvider 创建Google ASR提供者
func NewProvider(config *asr.Config, logger *utils.Logger) (asr.Provider, error) {
	return &Provider{
		BaseProvider: asr.NewBaseProvider(config, logger),
		apiKey:       config.String("api_key", ""),
		endpoint:     config.String("endpoint", ""),
		language:     config.String("language", DefaultLanguage),
	}, nil
}

// Initialize 使用API key创建Speech客户端
func (p *Provider) Initialize() error {
	if p.apiKey == "" {
		return fmt.Errorf("Google语音识别缺少api_key配置")
	}
	if p.client != nil {
		return nil
	}

	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	client, err := speech.NewClient(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("创建Google Speech客户端失败: %w", err)
	}
	p.client = client
	return nil
}

// Cleanup 关闭Speech客户端
func (p *Provider) Cleanup() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Transcribe 识别音频文件，FLAC原样上传，其余格式解码为16kHz LINEAR16
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("读取音频文件失败: %w", err)
	}

	config := &speechpb.RecognitionConfig{LanguageCode: p.language}
	var content []byte
	var duration float64

	if utils.DetectAudioFormat(data) == "flac" {
		// 采样率和声道数由服务端从FLAC头读取
		config.Encoding = speechpb.RecognitionConfig_FLAC
		content = data
	} else {
		audio, err := utils.DecodeAudio(data)
		if err != nil {
			return "", err
		}
		if len(audio.Samples) == 0 {
			return "", asr.ErrUnrecognized
		}
		audio = audio.Resample(SampleRate)
		config.Encoding = speechpb.RecognitionConfig_LINEAR16
		config.SampleRateHertz = int32(audio.SampleRate)
		config.AudioChannelCount = 1
		content = audio.Bytes()
		duration = audio.Duration()
	}

	resp, err := p.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: config,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: content}},
	})
	if err != nil {
		reqErr := requestError(err)
		p.Logger().Warn("Google语音识别请求失败", map[string]interface{}{
			"status": reqErr.StatusCode,
			"error":  reqErr.Error(),
		})
		return "", reqErr
	}

	// 长音频会被切分成多段结果，取每段的首选结果拼接
	var transcripts []string
	for _, r := range resp.GetResults() {
		alternatives := r.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		if transcript := strings.TrimSpace(alternatives[0].GetTranscript()); transcript != "" {
			transcripts = append(transcripts, transcript)
		}
	}
	if len(transcripts) == 0 {
		return "", asr.ErrUnrecognized
	}

	text := strings.Join(transcripts, " ")
	p.Logger().Debug("Google语音识别完成", map[string]interface{}{
		"encoding": config.Encoding.String(),
		"duration": duration,
		"text":     text,
	})
	return text, nil
}

// requestError 将gRPC错误转为识别请求错误，连接类错误不带状态码
func requestError(err error) *asr.RequestError {
	st, ok := status.FromError(err)
	if !ok {
		return &asr.RequestError{Err: err}
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &asr.RequestError{Err: err}
	}

	message := st.Message()
	if message == "" {
		message = st.Code().String()
	}
	return &asr.RequestError{StatusCode: httpStatus(st.Code()), Message: message, Err: err}
}

// httpStatus 返回gRPC状态码对应的HTTP状态码
func httpStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func init() {
	asr.Register("google", NewProvider)
}
