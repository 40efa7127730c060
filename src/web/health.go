package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse 服务状态
type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Providers map[string]string      `json:"providers"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
}

// MetricsFunc 返回某个组件的运行统计
type MetricsFunc func() interface{}

// RegisterHealth 注册状态检查接口，返回当前选用的各类提供者和各组件的统计
func RegisterHealth(router gin.IRoutes, service string, providers map[string]string, metrics map[string]MetricsFunc) {
	handler := func(c *gin.Context) {
		resp := HealthResponse{
			Status:    "ok",
			Service:   service,
			Providers: providers,
		}
		if len(metrics) > 0 {
			resp.Metrics = make(map[string]interface{}, len(metrics))
			for name, collect := range metrics {
				resp.Metrics[name] = collect()
			}
		}
		c.JSON(http.StatusOK, resp)
	}
	router.GET("/health", handler)
	router.HEAD("/health", handler)
}
