package voice

import (
	"context"

	"github.com/gin-gonic/gin"
)

// VoiceService 定义语音问答服务接口
type VoiceService interface {
	// 将 Voice 的路由注册到 router
	Start(ctx context.Context, router gin.IRoutes) error
}
