package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/prompt"
	"medrelay-server-go/src/core/providers"
	"medrelay-server-go/src/core/utils"
	"medrelay-server-go/src/web"

	"github.com/gin-gonic/gin"
)

type DefaultChatService struct {
	logger    *utils.TaggedLogger
	llm       providers.LLMProvider
	prefix    string
	timeout   time.Duration
	maxMemory int64
}

// NewDefaultChatService 构造函数
func NewDefaultChatService(config *configs.Config, llm providers.LLMProvider, logger *utils.Logger) (*DefaultChatService, error) {
	if llm == nil {
		return nil, fmt.Errorf("没有可用的LLM provider")
	}
	timeout, err := config.ProviderTimeoutDuration()
	if err != nil {
		return nil, err
	}
	return &DefaultChatService{
		logger:    logger.WithTag("Chat"),
		llm:       llm,
		prefix:    config.DefaultPrompt,
		timeout:   timeout,
		maxMemory: config.Web.MaxUploadSize,
	}, nil
}

// Start 实现 ChatService 接口，注册 /chat 路由
func (s *DefaultChatService) Start(ctx context.Context, router gin.IRoutes) error {
	router.POST("/chat/", s.handlePost)
	router.POST("/chat", s.handlePost)

	s.logger.Info("Chat HTTP服务路由注册完成")
	return nil
}

// handlePost 处理文本问答请求
func (s *DefaultChatService) handlePost(c *gin.Context) {
	if err := web.ParseForm(c, s.maxMemory); err != nil {
		web.RespondError(c, s.logger, err)
		return
	}
	text, err := web.RequiredFormValue(c, "text")
	if err != nil {
		web.RespondError(c, s.logger, err)
		return
	}

	ctx, cancel := web.ProviderContext(c, s.timeout)
	defer cancel()

	reply, err := s.llm.Generate(ctx, prompt.Build(s.prefix, text))
	if err != nil {
		web.RespondError(c, s.logger, err)
		return
	}

	s.logger.Debug("Chat回复完成", map[string]interface{}{
		"request_id": web.RequestID(c),
		"text_len":   len(text),
		"reply_len":  len(reply),
	})
	c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}
