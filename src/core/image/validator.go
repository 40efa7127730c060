package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/utils"

	_ "image/gif"  // 注册GIF解码器
	_ "image/jpeg" // 注册JPEG解码器
	_ "image/png"  // 注册PNG解码器

	_ "golang.org/x/image/bmp"  // 注册BMP解码器
	_ "golang.org/x/image/tiff" // 注册TIFF解码器
	_ "golang.org/x/image/webp" // 注册WEBP解码器
)

// ImageSecurityValidator 图片安全验证器
type ImageSecurityValidator struct {
	config *configs.SecurityConfig
	logger *utils.Logger
}

// NewImageSecurityValidator 创建新的图片安全验证器
func NewImageSecurityValidator(config *configs.SecurityConfig, logger *utils.Logger) *ImageSecurityValidator {
	return &ImageSecurityValidator{
		config: config,
		logger: logger,
	}
}

// 可执行文件及压缩包的文件头签名
var suspiciousSignatures = []struct {
	name      string
	signature []byte
}{
	{"PE", []byte{0x4D, 0x5A}},
	{"ELF", []byte{0x7F, 0x45, 0x4C, 0x46}},
	{"Mach-O", []byte{0xCA, 0xFE, 0xBA, 0xBE}},
	{"ZIP", []byte{0x50, 0x4B, 0x03, 0x04}},
	{"GZIP", []byte{0x1F, 0x8B, 0x08}},
}

var svgScriptMarkers = []string{
	"<script",
	"javascript:",
	"onload=",
	"onerror=",
	"<iframe",
	"<object",
	"<embed",
}

// Validate 验证上传的图片字节
func (v *ImageSecurityValidator) Validate(data []byte) ValidationResult {
	result := ValidationResult{IsValid: false}

	if len(data) == 0 {
		result.Error = fmt.Errorf("图片数据为空")
		return result
	}

	// 1. 基础大小检查
	if int64(len(data)) > v.config.MaxFileSize {
		result.Error = fmt.Errorf("文件大小超限: %d bytes，最大允许: %d bytes", len(data), v.config.MaxFileSize)
		result.SecurityRisk = "文件过大"
		v.logger.Warn("检测到超大文件", map[string]interface{}{
			"size":     len(data),
			"max_size": v.config.MaxFileSize,
		})
		return result
	}

	// 2. 恶意内容检测
	if v.config.EnableDeepScan {
		if risk := v.scanForMaliciousContent(data); risk != "" {
			result.Error = fmt.Errorf("检测到潜在恶意内容: %s", risk)
			result.SecurityRisk = risk
			return result
		}
	}

	// 3. 解码文件头获取格式和尺寸
	result = v.validateImageDecoding(data)
	if !result.IsValid {
		return result
	}

	// 4. 格式白名单
	if !v.isFormatAllowed(result.Format) {
		result.IsValid = false
		result.Error = fmt.Errorf("不支持的格式: %s", result.Format)
		result.SecurityRisk = "使用了不被允许的格式"
	}
	return result
}

// isFormatAllowed 检查格式是否被允许
func (v *ImageSecurityValidator) isFormatAllowed(format string) bool {
	formatLower := strings.ToLower(format)
	for _, allowedFormat := range v.config.AllowedFormats {
		if strings.ToLower(allowedFormat) == formatLower {
			return true
		}
	}
	return false
}

// scanForMaliciousContent 返回检测到的风险描述，没有风险时返回空串
func (v *ImageSecurityValidator) scanForMaliciousContent(data []byte) string {
	for _, s := range suspiciousSignatures {
		if bytes.HasPrefix(data, s.signature) {
			v.logger.Warn("文件开头检测到可疑签名", map[string]interface{}{
				"signature_type": s.name,
				"signature_hex":  fmt.Sprintf("%x", s.signature),
			})
			return s.name + "文件签名"
		}
	}

	lower := strings.ToLower(string(data))
	if strings.Contains(lower, "<svg") {
		for _, marker := range svgScriptMarkers {
			if strings.Contains(lower, marker) {
				v.logger.Warn("在SVG中检测到可疑脚本内容", map[string]interface{}{
					"suspicious_content": marker,
				})
				return "SVG脚本"
			}
		}
	}
	return ""
}

// validateImageDecoding 只解码文件头，检查尺寸和像素限制
func (v *ImageSecurityValidator) validateImageDecoding(data []byte) ValidationResult {
	result := ValidationResult{}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.Error = fmt.Errorf("图片解码失败: %v", err)
		result.SecurityRisk = "无法识别的图片数据"
		return result
	}
	result.Format = format

	if config.Width <= 0 || config.Height <= 0 {
		result.Error = fmt.Errorf("图片尺寸无效: %dx%d", config.Width, config.Height)
		return result
	}

	// 检查尺寸限制
	if config.Width > v.config.MaxWidth || config.Height > v.config.MaxHeight {
		result.Error = fmt.Errorf("图片尺寸超限: %dx%d，最大允许: %dx%d",
			config.Width, config.Height, v.config.MaxWidth, v.config.MaxHeight)
		result.SecurityRisk = "图片过大，可能消耗过多资源"
		return result
	}

	// 检查像素总数
	totalPixels := int64(config.Width) * int64(config.Height)
	if totalPixels > v.config.MaxPixels {
		result.Error = fmt.Errorf("像素总数超限: %d，最大允许: %d", totalPixels, v.config.MaxPixels)
		result.SecurityRisk = "像素过多，可能导致内存耗尽"
		return result
	}

	result.IsValid = true
	result.Width = config.Width
	result.Height = config.Height
	result.FileSize = int64(len(data))

	v.logger.Debug("图片验证成功", map[string]interface{}{
		"format": result.Format,
		"width":  result.Width,
		"height": result.Height,
		"size":   result.FileSize,
	})
	return result
}
