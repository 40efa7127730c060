package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"medrelay-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 统一错误响应结构
type ErrorResponse struct {
	Error string `json:"error"`
}

// MissingFieldError 缺少必填的表单字段
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field required: %s", e.Field)
}

// RespondError 返回错误响应：缺少必填字段为422，其余一律为500
func RespondError(c *gin.Context, logger *utils.TaggedLogger, err error) {
	status := http.StatusInternalServerError
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		status = http.StatusUnprocessableEntity
	}

	c.Error(err)
	logger.Warn("请求失败", map[string]interface{}{
		"request_id": RequestID(c),
		"status":     status,
		"error":      err.Error(),
	})
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// ParseForm 解析表单，multipart 和 urlencoded 均可
func ParseForm(c *gin.Context, maxMemory int64) error {
	var err error
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		err = c.Request.ParseMultipartForm(maxMemory)
	} else {
		err = c.Request.ParseForm()
	}
	if err != nil {
		return fmt.Errorf("解析表单失败: %w", err)
	}
	return nil
}

// RequiredFormValue 读取必填的文本字段，字段存在即可，允许为空串
func RequiredFormValue(c *gin.Context, field string) (string, error) {
	if values, ok := c.Request.PostForm[field]; ok && len(values) > 0 {
		return values[0], nil
	}
	return "", &MissingFieldError{Field: field}
}

// OptionalFormValue 读取可选的文本字段，缺失时为空串
func OptionalFormValue(c *gin.Context, field string) string {
	return c.Request.PostFormValue(field)
}

// ReadFormFile 读取必填的上传文件内容
func ReadFormFile(c *gin.Context, field string) ([]byte, *multipart.FileHeader, error) {
	if c.Request.MultipartForm == nil || len(c.Request.MultipartForm.File[field]) == 0 {
		return nil, nil, &MissingFieldError{Field: field}
	}
	header := c.Request.MultipartForm.File[field][0]

	file, err := header.Open()
	if err != nil {
		return nil, header, fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, header, fmt.Errorf("读取上传文件失败: %w", err)
	}
	return data, header, nil
}

// ProviderContext 为外部服务调用派生上下文，timeout为0时只跟随请求生命周期
func ProviderContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
