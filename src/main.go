package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"medrelay-server-go/src/chat"
	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/providers"
	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/providers/llm"
	"medrelay-server-go/src/core/providers/vlllm"
	"medrelay-server-go/src/core/utils"
	"medrelay-server-go/src/vision"
	"medrelay-server-go/src/voice"
	"medrelay-server-go/src/web"

	// 导入所有providers以确保init函数被调用
	_ "medrelay-server-go/src/core/providers/asr/gemini"
	_ "medrelay-server-go/src/core/providers/asr/google"
	_ "medrelay-server-go/src/core/providers/asr/gosherpa"
	_ "medrelay-server-go/src/core/providers/asr/whisper"
	_ "medrelay-server-go/src/core/providers/llm/gemini"
	_ "medrelay-server-go/src/core/providers/llm/ollama"
	_ "medrelay-server-go/src/core/providers/llm/openai"
	_ "medrelay-server-go/src/core/providers/vlllm/gemini"
	_ "medrelay-server-go/src/core/providers/vlllm/ollama"
	_ "medrelay-server-go/src/core/providers/vlllm/openai"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const serviceName = "medrelay-server-go"

// Providers 当前选用的各类提供者
type Providers struct {
	LLM   providers.LLMProvider
	VLLLM providers.VLLLMProvider
	ASR   providers.ASRProvider

	names map[string]string
}

func LoadConfigAndLogger(configPath string) (*configs.Config, *utils.Logger, error) {
	// 加载配置,默认使用.config.yaml
	config, configPath, err := configs.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	// 初始化日志系统
	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", configPath))

	return config, logger, nil
}

// InitProviders 按 selected_module 创建LLM、VLLLM和ASR提供者
func InitProviders(config *configs.Config, logger *utils.Logger) (*Providers, error) {
	p := &Providers{names: map[string]string{}}

	llmName, llmConfig := config.SelectedLLM()
	llmType := llmConfig.Type
	if llmType == "" {
		llmType = strings.ToLower(llmName)
	}
	llmProvider, err := llm.Create(llmType, llm.NewConfig(llmConfig))
	if err != nil {
		return nil, fmt.Errorf("LLM %s: %w", llmName, err)
	}
	p.LLM = llmProvider
	p.names["LLM"] = llmName

	vlllmName, vlllmConfig := config.SelectedVLLLM()
	vlllmType := vlllmConfig.Type
	if vlllmType == "" {
		vlllmType = strings.ToLower(vlllmName)
	}
	vlllmProvider, err := vlllm.Create(vlllmType, &vlllmConfig, logger)
	if err != nil {
		p.Cleanup(logger)
		return nil, fmt.Errorf("VLLLM %s: %w", vlllmName, err)
	}
	p.VLLLM = vlllmProvider
	p.names["VLLLM"] = vlllmName

	asrName, asrConfig := config.SelectedASR()
	asrType := asrConfig.Type(strings.ToLower(asrName))
	asrProvider, err := asr.Create(asrType, &asr.Config{
		Type: asrType,
		Data: asrConfig,
	}, logger)
	if err != nil {
		p.Cleanup(logger)
		return nil, fmt.Errorf("ASR %s: %w", asrName, err)
	}
	p.ASR = asrProvider
	p.names["ASR"] = asrName

	logger.Info("提供者初始化完成", map[string]interface{}{
		"llm":   llmName,
		"vlllm": vlllmName,
		"asr":   asrName,
	})
	return p, nil
}

// Cleanup 释放所有已创建的提供者
func (p *Providers) Cleanup(logger *utils.Logger) {
	for name, provider := range map[string]providers.Provider{
		"LLM":   p.LLM,
		"VLLLM": p.VLLLM,
		"ASR":   p.ASR,
	} {
		if provider == nil {
			continue
		}
		if err := provider.Cleanup(); err != nil {
			logger.Warn(fmt.Sprintf("%s 提供者清理失败: %v", name, err))
		}
	}
}

// NewRouter 创建gin引擎并注册所有服务路由
func NewRouter(ctx context.Context, config *configs.Config, p *Providers, logger *utils.Logger) (*gin.Engine, error) {
	router := web.NewEngine(logger, config.Web.CORSOrigin, config.Web.MaxUploadSize)

	chatService, err := chat.NewDefaultChatService(config, p.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("Chat 服务初始化失败: %w", err)
	}
	visionService, err := vision.NewDefaultVisionService(config, p.VLLLM, logger)
	if err != nil {
		return nil, fmt.Errorf("Vision 服务初始化失败: %w", err)
	}
	voiceService, err := voice.NewDefaultVoiceService(config, p.ASR, p.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("Voice 服务初始化失败: %w", err)
	}

	for _, service := range []interface {
		Start(ctx context.Context, router gin.IRoutes) error
	}{chatService, visionService, voiceService} {
		if err := service.Start(ctx, router); err != nil {
			return nil, err
		}
	}
	web.RegisterHealth(router, serviceName, p.names, map[string]web.MetricsFunc{
		"image": func() interface{} { return visionService.Metrics() },
	})

	return router, nil
}

func StartHttpServer(config *configs.Config, router http.Handler, logger *utils.Logger, g *errgroup.Group, groupCtx context.Context) *http.Server {
	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))

	// HTTP Server（支持优雅关机）
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s", addr))

		// 在单独的 goroutine 中监听关闭信号
		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			// 创建关闭超时上下文
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error(fmt.Sprintf("HTTP服务关闭失败: %v", err))
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("HTTP 服务启动失败: %v", err))
			return err
		}
		return nil
	})

	return httpServer
}

func GracefulShutdown(ctx context.Context, cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group) error {
	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// 等待信号，或服务自身异常退出
	select {
	case sig := <-sigChan:
		logger.Info(fmt.Sprintf("接收到系统信号: %v，开始优雅关闭服务", sig))
	case <-ctx.Done():
		logger.Warn("服务异常退出，开始关闭")
	}

	// 取消上下文，通知所有服务开始关闭
	cancel()

	// 等待所有服务关闭，设置超时保护
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("服务关闭过程中出现错误: %w", err)
		}
		logger.Info("所有服务已优雅关闭")
		return nil
	case <-time.After(15 * time.Second):
		return fmt.Errorf("服务关闭超时，强制退出")
	}
}

func run(configPath string) error {
	// 先加载 .env，配置文件中的 ${VAR} 需要用到
	envErr := godotenv.Load()

	// 加载配置和初始化日志系统
	config, logger, err := LoadConfigAndLogger(configPath)
	if err != nil {
		return fmt.Errorf("加载配置或初始化日志系统失败: %w", err)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	if strings.EqualFold(config.Log.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	p, err := InitProviders(config, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("初始化提供者失败: %v", err))
		return err
	}
	defer p.Cleanup(logger)

	// 创建可取消的上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 用 errgroup 管理HTTP服务
	g, groupCtx := errgroup.WithContext(ctx)

	router, err := NewRouter(groupCtx, config, p, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("启动服务失败: %v", err))
		return err
	}
	StartHttpServer(config, router, logger, g, groupCtx)

	// 启动优雅关机处理
	if err := GracefulShutdown(groupCtx, cancel, logger, g); err != nil {
		logger.Error(err.Error())
		return err
	}

	logger.Info("程序已成功退出")
	return nil
}

func main() {
	configPath := flag.String("c", "", "配置文件路径，默认依次尝试 .config.yaml 和 config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
