package vision

import (
	"context"

	"github.com/gin-gonic/gin"
)

// VisionService 定义 Vision 服务接口
type VisionService interface {
	// 将 Vision 的路由注册到 router
	Start(ctx context.Context, router gin.IRoutes) error
}
