package vision

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/image"
	"medrelay-server-go/src/core/prompt"
	"medrelay-server-go/src/core/providers"
	"medrelay-server-go/src/core/utils"
	"medrelay-server-go/src/web"

	"github.com/gin-gonic/gin"
)

type DefaultVisionService struct {
	logger    *utils.TaggedLogger
	vlllm     providers.VLLLMProvider
	processor *image.ImageProcessor
	prefix    string
	timeout   time.Duration
	maxMemory int64
}

// NewDefaultVisionService 构造函数，图片安全限制取自当前选择的VLLLM配置
func NewDefaultVisionService(config *configs.Config, vlllm providers.VLLLMProvider, logger *utils.Logger) (*DefaultVisionService, error) {
	if vlllm == nil {
		return nil, fmt.Errorf("没有可用的VLLLM provider")
	}
	timeout, err := config.ProviderTimeoutDuration()
	if err != nil {
		return nil, err
	}

	_, vlllmConfig := config.SelectedVLLLM()
	security := vlllmConfig.Security

	return &DefaultVisionService{
		logger:    logger.WithTag("Vision"),
		vlllm:     vlllm,
		processor: image.NewImageProcessor(&security, logger),
		prefix:    config.DefaultPrompt,
		timeout:   timeout,
		maxMemory: config.Web.MaxUploadSize,
	}, nil
}

// Start 实现 VisionService 接口，注册 /vision 路由
func (s *DefaultVisionService) Start(ctx context.Context, router gin.IRoutes) error {
	router.POST("/vision/", s.handlePost)
	router.POST("/vision", s.handlePost)

	s.logger.Info("Vision HTTP服务路由注册完成")
	return nil
}

// Metrics 返回图片处理统计
func (s *DefaultVisionService) Metrics() image.ImageMetrics {
	return s.processor.GetMetrics()
}

// handlePost 处理POST请求（图片分析）
func (s *DefaultVisionService) handlePost(c *gin.Context) {
	req, err := s.parseMultipartRequest(c)
	if err != nil {
		web.RespondError(c, s.logger, err)
		return
	}

	s.logger.Debug("收到Vision分析请求", map[string]interface{}{
		"request_id": web.RequestID(c),
		"filename":   req.Filename,
		"question":   req.Question,
		"image_size": len(req.Image),
	})

	reply, err := s.processVisionRequest(c, req)
	if err != nil {
		web.RespondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, VisionResponse{Reply: reply})
}

// parseMultipartRequest 解析multipart表单请求
func (s *DefaultVisionService) parseMultipartRequest(c *gin.Context) (*VisionRequest, error) {
	if err := web.ParseForm(c, s.maxMemory); err != nil {
		return nil, err
	}
	imageData, header, err := web.ReadFormFile(c, "file")
	if err != nil {
		return nil, err
	}
	return &VisionRequest{
		Question: web.OptionalFormValue(c, "question"),
		Image:    imageData,
		Filename: header.Filename,
	}, nil
}

// processVisionRequest 将图片转为PNG后交给VLLLM分析
func (s *DefaultVisionService) processVisionRequest(c *gin.Context, req *VisionRequest) (string, error) {
	normalized, err := s.processor.Normalize(req.Image)
	if err != nil {
		return "", err
	}

	ctx, cancel := web.ProviderContext(c, s.timeout)
	defer cancel()

	reply, err := s.vlllm.ResponseWithImage(ctx, normalized, prompt.Build(s.prefix, req.Question))
	if err != nil {
		return "", err
	}
	s.logger.Info("VLLLM分析完成", map[string]interface{}{
		"request_id":    web.RequestID(c),
		"source_format": normalized.SourceFormat,
		"reply_len":     len(reply),
	})
	return reply, nil
}
