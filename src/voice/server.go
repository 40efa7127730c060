package voice

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/prompt"
	"medrelay-server-go/src/core/providers"
	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/utils"
	"medrelay-server-go/src/web"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 上传文件名没有扩展名时使用的临时文件后缀
const defaultAudioExt = ".wav"

type DefaultVoiceService struct {
	logger       *utils.TaggedLogger
	asr          providers.ASRProvider
	llm          providers.LLMProvider
	prefix       string
	tempDir      string
	unrecognized string
	errorFormat  string
	timeout      time.Duration
	maxMemory    int64
}

// NewDefaultVoiceService 构造函数
func NewDefaultVoiceService(config *configs.Config, asrProvider providers.ASRProvider, llm providers.LLMProvider, logger *utils.Logger) (*DefaultVoiceService, error) {
	if asrProvider == nil {
		return nil, fmt.Errorf("没有可用的ASR provider")
	}
	if llm == nil {
		return nil, fmt.Errorf("没有可用的LLM provider")
	}
	timeout, err := config.ProviderTimeoutDuration()
	if err != nil {
		return nil, err
	}

	tempDir := config.Voice.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	} else if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建临时音频目录失败: %w", err)
	}

	return &DefaultVoiceService{
		logger:       logger.WithTag("Voice"),
		asr:          asrProvider,
		llm:          llm,
		prefix:       config.DefaultPrompt,
		tempDir:      tempDir,
		unrecognized: config.Voice.UnrecognizedText,
		errorFormat:  config.Voice.ErrorFormat,
		timeout:      timeout,
		maxMemory:    config.Web.MaxUploadSize,
	}, nil
}

// Start 实现 VoiceService 接口，注册 /voice 路由
func (s *DefaultVoiceService) Start(ctx context.Context, router gin.IRoutes) error {
	router.POST("/voice/", s.handlePost)
	router.POST("/voice", s.handlePost)

	s.logger.Info("Voice HTTP服务路由注册完成")
	return nil
}

// handlePost 处理语音问答请求
func (s *DefaultVoiceService) handlePost(c *gin.Context) {
	resp, err := s.processVoiceRequest(c)
	if err != nil {
		web.RespondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *DefaultVoiceService) processVoiceRequest(c *gin.Context) (*VoiceResponse, error) {
	if err := web.ParseForm(c, s.maxMemory); err != nil {
		return nil, err
	}
	audioData, header, err := web.ReadFormFile(c, "file")
	if err != nil {
		return nil, err
	}

	audioPath, err := s.saveTempAudio(audioData, header.Filename)
	if err != nil {
		return nil, err
	}
	defer s.removeTempAudio(audioPath)

	ctx, cancel := web.ProviderContext(c, s.timeout)
	defer cancel()

	recognized, err := s.recognize(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("语音识别完成", map[string]interface{}{
		"request_id":      web.RequestID(c),
		"audio_size":      len(audioData),
		"recognized_text": recognized,
	})

	reply, err := s.llm.Generate(ctx, prompt.Build(s.prefix, recognized))
	if err != nil {
		return nil, err
	}
	return &VoiceResponse{RecognizedText: recognized, Reply: reply}, nil
}

// recognize 执行语音识别，无法识别和服务失败都会转为占位文本
func (s *DefaultVoiceService) recognize(ctx context.Context, audioPath string) (string, error) {
	text, err := s.asr.Transcribe(ctx, audioPath)
	if err != nil {
		s.logger.Warn("语音识别未返回文本", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return asr.Classify(text, err, s.unrecognized, s.errorFormat)
}

// saveTempAudio 将上传的音频写入临时文件，扩展名沿用上传文件名
func (s *DefaultVoiceService) saveTempAudio(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 8 {
		ext = defaultAudioExt
	}
	path := filepath.Join(s.tempDir, "voice-"+uuid.New().String()+ext)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("创建临时音频文件失败: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("写入临时音频文件失败: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("写入临时音频文件失败: %w", err)
	}
	return path, nil
}

func (s *DefaultVoiceService) removeTempAudio(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("删除临时音频文件失败", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
