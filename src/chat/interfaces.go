package chat

import (
	"context"

	"github.com/gin-gonic/gin"
)

// ChatService 定义文本问答服务接口
type ChatService interface {
	// 将 Chat 的路由注册到 router
	Start(ctx context.Context, router gin.IRoutes) error
}
