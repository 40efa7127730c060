package asr

import (
	"errors"
	"fmt"
	"strings"

	"medrelay-server-go/src/core/providers"
	"medrelay-server-go/src/core/utils"
)

// ErrUnrecognized 音频中没有可识别的语音
var ErrUnrecognized = errors.New("无法识别语音内容")

// RequestError 识别服务请求失败（网络错误或服务端拒绝）
type RequestError struct {
	StatusCode int    // HTTP状态码，连接失败时为0
	Message    string // 服务端返回的错误信息
	Err        error  // 底层错误
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("recognition connection failed: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("recognition request failed: %s", e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("recognition request failed: %v", e.Err)
	}
	return fmt.Sprintf("recognition request failed: status %d", e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Classify 将识别结果归类为可继续处理的文本：
// 识别成功原样返回文本，空白或无法识别返回 unrecognized，服务失败按 errorFormat 生成占位文本。
// 其余错误原样返回
func Classify(text string, err error, unrecognized, errorFormat string) (string, error) {
	var reqErr *RequestError
	switch {
	case err == nil:
		if strings.TrimSpace(text) == "" {
			return unrecognized, nil
		}
		return text, nil
	case errors.Is(err, ErrUnrecognized):
		return unrecognized, nil
	case errors.As(err, &reqErr):
		return fmt.Sprintf(errorFormat, reqErr.Error()), nil
	default:
		return "", err
	}
}

// Config ASR配置结构
type Config struct {
	Type string
	Data map[string]interface{}
}

// String 读取字符串配置项
func (c *Config) String(key, fallback string) string {
	if v, ok := c.Data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Provider ASR提供者接口
type Provider interface {
	providers.ASRProvider
}

// BaseProvider ASR基础实现
type BaseProvider struct {
	config *Config
	logger *utils.Logger
}

// NewBaseProvider 创建ASR基础提供者
func NewBaseProvider(config *Config, logger *utils.Logger) *BaseProvider {
	return &BaseProvider{
		config: config,
		logger: logger,
	}
}

// Config 获取配置
func (p *BaseProvider) Config() *Config {
	return p.config
}

// Logger 获取日志记录器
func (p *BaseProvider) Logger() *utils.Logger {
	return p.logger
}

// Initialize 初始化提供者
func (p *BaseProvider) Initialize() error {
	return nil
}

// Cleanup 清理资源
func (p *BaseProvider) Cleanup() error {
	return nil
}

// Factory ASR工厂函数类型
type Factory func(config *Config, logger *utils.Logger) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册ASR提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 创建ASR提供者实例
func Create(name string, config *Config, logger *utils.Logger) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("未知的ASR提供者: %s", name)
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("创建ASR提供者失败: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化ASR提供者失败: %v", err)
	}

	return provider, nil
}
