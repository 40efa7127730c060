package image

import "encoding/base64"

// PNGMIMEType 规范化后图片的MIME类型
const PNGMIMEType = "image/png"

// Normalized 重新编码为PNG后的图片
type Normalized struct {
	PNG          []byte // PNG编码后的字节
	Width        int    // 图片宽度
	Height       int    // 图片高度
	SourceFormat string // 上传时的原始格式
}

// MIMEType 返回规范化图片的MIME类型
func (n *Normalized) MIMEType() string {
	return PNGMIMEType
}

// Base64 返回PNG字节的标准base64编码
func (n *Normalized) Base64() string {
	return base64.StdEncoding.EncodeToString(n.PNG)
}

// DataURL 返回 data:image/png;base64,... 形式的地址
func (n *Normalized) DataURL() string {
	return "data:" + PNGMIMEType + ";base64," + n.Base64()
}

// ValidationResult 图片验证结果
type ValidationResult struct {
	IsValid      bool   // 是否有效
	Format       string // 实际格式
	Width        int    // 图片宽度
	Height       int    // 图片高度
	FileSize     int64  // 文件大小
	Error        error  // 错误信息
	SecurityRisk string // 安全风险描述
}

// ImageMetrics 图片处理统计信息
type ImageMetrics struct {
	TotalProcessed    int64 `json:"total_processed"`    // 总处理数量
	Normalized        int64 `json:"normalized"`         // 成功转码数量
	FailedValidations int64 `json:"failed_validations"` // 验证失败次数
	SecurityIncidents int64 `json:"security_incidents"` // 安全事件次数
}
