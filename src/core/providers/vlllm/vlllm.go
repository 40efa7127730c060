package vlllm

import (
	"fmt"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/providers"
	"medrelay-server-go/src/core/utils"
)

// Config VLLLM配置结构
type Config struct {
	Type        string
	ModelName   string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Data        map[string]interface{}
}

// Provider VLLLM提供者接口
type Provider interface {
	providers.VLLLMProvider
}

// BaseProvider VLLLM基础实现
type BaseProvider struct {
	config *Config
	logger *utils.Logger
}

// NewBaseProvider 创建VLLLM基础提供者
func NewBaseProvider(config *Config, logger *utils.Logger) *BaseProvider {
	return &BaseProvider{config: config, logger: logger}
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

// Factory VLLLM工厂函数类型
type Factory func(config *Config, logger *utils.Logger) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册VLLLM提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 创建VLLLM提供者实例
func Create(name string, vlllmConfig *configs.VLLMConfig, logger *utils.Logger) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("未知的VLLLM提供者: %s", name)
	}

	// 转换配置格式
	config := &Config{
		Type:        vlllmConfig.Type,
		ModelName:   vlllmConfig.ModelName,
		BaseURL:     vlllmConfig.BaseURL,
		APIKey:      vlllmConfig.APIKey,
		Temperature: vlllmConfig.Temperature,
		MaxTokens:   vlllmConfig.MaxTokens,
		TopP:        vlllmConfig.TopP,
		Data:        vlllmConfig.Extra,
	}

	// 创建提供者实例
	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("创建VLLLM提供者失败: %v", err)
	}

	// 初始化提供者
	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化VLLLM提供者失败: %v", err)
	}

	logger.Debug("VLLLM提供者创建成功", map[string]interface{}{
		"name":       name,
		"type":       config.Type,
		"model_name": config.ModelName,
	})

	return provider, nil
}
