package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync/atomic"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/utils"
)

// ErrInvalidImage 上传内容无法作为图片处理
var ErrInvalidImage = errors.New("无效的图片")

// ImageProcessor 图片处理器，将任意支持的格式统一转为PNG
type ImageProcessor struct {
	validator *ImageSecurityValidator
	logger    *utils.Logger
	metrics   *ImageMetrics
}

// NewImageProcessor 创建新的图片处理器
func NewImageProcessor(config *configs.SecurityConfig, logger *utils.Logger) *ImageProcessor {
	return &ImageProcessor{
		validator: NewImageSecurityValidator(config, logger),
		logger:    logger,
		metrics:   &ImageMetrics{},
	}
}

// Normalize 校验并解码图片，重新编码为PNG
func (p *ImageProcessor) Normalize(data []byte) (*Normalized, error) {
	atomic.AddInt64(&p.metrics.TotalProcessed, 1)

	result := p.validator.Validate(data)
	if !result.IsValid {
		atomic.AddInt64(&p.metrics.FailedValidations, 1)
		if result.SecurityRisk != "" {
			atomic.AddInt64(&p.metrics.SecurityIncidents, 1)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, result.Error)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		atomic.AddInt64(&p.metrics.FailedValidations, 1)
		return nil, fmt.Errorf("%w: 图片解码失败: %v", ErrInvalidImage, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("PNG编码失败: %w", err)
	}

	atomic.AddInt64(&p.metrics.Normalized, 1)
	bounds := img.Bounds()
	p.logger.Debug("图片已转为PNG", map[string]interface{}{
		"source_format": format,
		"source_size":   len(data),
		"png_size":      buf.Len(),
	})

	return &Normalized{
		PNG:          buf.Bytes(),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		SourceFormat: format,
	}, nil
}

// GetMetrics 获取处理统计信息
func (p *ImageProcessor) GetMetrics() ImageMetrics {
	return ImageMetrics{
		TotalProcessed:    atomic.LoadInt64(&p.metrics.TotalProcessed),
		Normalized:        atomic.LoadInt64(&p.metrics.Normalized),
		FailedValidations: atomic.LoadInt64(&p.metrics.FailedValidations),
		SecurityIncidents: atomic.LoadInt64(&p.metrics.SecurityIncidents),
	}
}
