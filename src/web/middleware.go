package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"medrelay-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 请求ID响应头
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"

	allowMethods = "DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT"
	corsMaxAge   = "600"
)

// CORS 只允许单一来源跨域访问，允许携带凭证，方法和请求头不做限制
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowed := origin == allowedOrigin
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		// 预检请求
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			if !allowed {
				c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Disallowed CORS origin"})
				return
			}
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Allow-Methods", allowMethods)
			if requested := c.GetHeader("Access-Control-Request-Headers"); requested != "" {
				header.Set("Access-Control-Allow-Headers", requested)
			}
			header.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusOK)
			return
		}

		if allowed {
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		c.Next()
	}
}

// RequestLogger 为每个请求分配ID并记录访问日志
func RequestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		fields := map[string]interface{}{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("请求处理失败", fields)
		case status >= http.StatusBadRequest:
			logger.Warn("请求参数错误", fields)
		default:
			logger.Info("请求完成", fields)
		}
	}
}

// RequestID 返回当前请求的ID
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Recovery 捕获处理器中的panic，以统一的错误结构返回
func Recovery(logger *utils.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("请求处理发生panic", map[string]interface{}{
			"request_id": RequestID(c),
			"path":       c.Request.URL.Path,
			"panic":      fmt.Sprint(recovered),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprint(recovered)})
	})
}

// BodyLimit 限制请求体大小，超出部分在读取时报错
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// NewEngine 创建带统一中间件的gin引擎
func NewEngine(logger *utils.Logger, allowedOrigin string, maxUploadSize int64) *gin.Engine {
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.HandleMethodNotAllowed = true
	engine.MaxMultipartMemory = maxUploadSize
	engine.Use(
		Recovery(logger),
		RequestLogger(logger),
		CORS(strings.TrimSuffix(allowedOrigin, "/")),
		BodyLimit(maxUploadSize),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not Found"})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: "Method Not Allowed"})
	})
	return engine
}
