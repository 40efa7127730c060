package configs

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPrompt 默认的指令前缀，用户文本直接拼接在其后
	DefaultPrompt = "You are a helpful medical assistant. "

	// DefaultUnrecognizedText 语音无法识别时的占位文本
	DefaultUnrecognizedText = "[Could not understand audio]"

	// DefaultRecognitionErrorFormat 识别服务请求失败时的占位文本格式
	DefaultRecognitionErrorFormat = "[Speech recognition error: %s]"
)

// Config 主配置结构
type Config struct {
	Server struct {
		IP              string `yaml:"ip"`
		Port            int    `yaml:"port"`
		ProviderTimeout string `yaml:"provider_timeout"` // 为空或0表示不限时
	} `yaml:"server"`

	Log struct {
		LogLevel string `yaml:"log_level"`
		LogDir   string `yaml:"log_dir"`
		LogFile  string `yaml:"log_file"`
	} `yaml:"log"`

	Web struct {
		CORSOrigin    string `yaml:"cors_origin"`
		MaxUploadSize int64  `yaml:"max_upload_size"`
	} `yaml:"web"`

	DefaultPrompt string `yaml:"prompt"`

	Voice VoiceConfig `yaml:"voice"`

	SelectedModule map[string]string `yaml:"selected_module"`

	ASR   map[string]ASRConfig  `yaml:"ASR"`
	LLM   map[string]LLMConfig  `yaml:"LLM"`
	VLLLM map[string]VLLMConfig `yaml:"VLLLM"`
}

// VoiceConfig 语音转写相关配置
type VoiceConfig struct {
	TempDir          string `yaml:"temp_dir"`          // 临时音频目录，为空使用系统临时目录
	UnrecognizedText string `yaml:"unrecognized_text"` // 无法识别时的占位文本
	ErrorFormat      string `yaml:"error_format"`      // 识别服务失败时的占位文本格式，需包含一个 %s
}

// ASRConfig ASR配置结构
type ASRConfig map[string]interface{}

// LLMConfig LLM配置结构
type LLMConfig struct {
	Type        string                 `yaml:"type"`
	ModelName   string                 `yaml:"model_name"`
	BaseURL     string                 `yaml:"url"`
	APIKey      string                 `yaml:"api_key"`
	Temperature float64                `yaml:"temperature"`
	MaxTokens   int                    `yaml:"max_tokens"`
	TopP        float64                `yaml:"top_p"`
	Extra       map[string]interface{} `yaml:",inline"`
}

// SecurityConfig 图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`    // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`       // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`        // 最大宽度
	MaxHeight      int      `yaml:"max_height"`       // 最大高度
	AllowedFormats []string `yaml:"allowed_formats"`  // 允许的图片格式
	EnableDeepScan bool     `yaml:"enable_deep_scan"` // 启用可执行文件签名扫描
}

// VLLMConfig VLLLM配置结构（视觉语言大模型）
type VLLMConfig struct {
	Type        string                 `yaml:"type"`
	ModelName   string                 `yaml:"model_name"`
	BaseURL     string                 `yaml:"url"`
	APIKey      string                 `yaml:"api_key"`
	Temperature float64                `yaml:"temperature"`
	MaxTokens   int                    `yaml:"max_tokens"`
	TopP        float64                `yaml:"top_p"`
	Security    SecurityConfig         `yaml:"security"`
	Extra       map[string]interface{} `yaml:",inline"`
}

// LoadConfig 从文件加载配置，path为空时依次尝试 .config.yaml 和 config.yaml
func LoadConfig(path string) (*Config, string, error) {
	if path == "" {
		path = ".config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = "config.yaml"
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	config, err := Parse(data)
	if err != nil {
		return nil, path, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}
	return config, path, nil
}

// envRefPattern 只匹配带花括号的 ${VAR} 引用，其余的 $ 原样保留
var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv 用环境变量替换 ${VAR} 引用，未设置的变量替换为空串
func expandEnv(text string) string {
	return envRefPattern.ReplaceAllStringFunc(text, func(ref string) string {
		return os.Getenv(envRefPattern.FindStringSubmatch(ref)[1])
	})
}

// Parse 解析YAML配置，${VAR} 形式的引用会先从环境变量展开
func Parse(data []byte) (*Config, error) {
	expanded := expandEnv(string(data))

	config := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.IP == "" {
		c.Server.IP = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Log.LogLevel == "" {
		c.Log.LogLevel = "INFO"
	}
	if c.Log.LogDir == "" {
		c.Log.LogDir = "logs"
	}
	if c.Log.LogFile == "" {
		c.Log.LogFile = "server.log"
	}
	if c.Web.CORSOrigin == "" {
		c.Web.CORSOrigin = "http://localhost:3000"
	}
	if c.Web.MaxUploadSize <= 0 {
		c.Web.MaxUploadSize = 10 * 1024 * 1024
	}
	if c.DefaultPrompt == "" {
		c.DefaultPrompt = DefaultPrompt
	}
	if c.Voice.UnrecognizedText == "" {
		c.Voice.UnrecognizedText = DefaultUnrecognizedText
	}
	if c.Voice.ErrorFormat == "" {
		c.Voice.ErrorFormat = DefaultRecognitionErrorFormat
	}
	if c.SelectedModule == nil {
		c.SelectedModule = map[string]string{}
	}
	for name, vc := range c.VLLLM {
		vc.Security.applyDefaults()
		c.VLLLM[name] = vc
	}
}

func (s *SecurityConfig) applyDefaults() {
	if s.MaxFileSize <= 0 {
		s.MaxFileSize = 10 * 1024 * 1024
	}
	if s.MaxWidth <= 0 {
		s.MaxWidth = 8192
	}
	if s.MaxHeight <= 0 {
		s.MaxHeight = 8192
	}
	if s.MaxPixels <= 0 {
		s.MaxPixels = 40_000_000
	}
	if len(s.AllowedFormats) == 0 {
		s.AllowedFormats = []string{"jpeg", "png", "gif", "bmp", "tiff", "webp"}
	}
}

// Validate 检查已选择的模块是否都有对应配置
func (c *Config) Validate() error {
	for _, module := range []string{"LLM", "VLLLM", "ASR"} {
		name := c.SelectedModule[module]
		if name == "" {
			return fmt.Errorf("selected_module.%s 未设置", module)
		}
		var exists bool
		switch module {
		case "LLM":
			_, exists = c.LLM[name]
		case "VLLLM":
			_, exists = c.VLLLM[name]
		case "ASR":
			_, exists = c.ASR[name]
		}
		if !exists {
			return fmt.Errorf("selected_module.%s 指向的配置 %s 不存在", module, name)
		}
	}

	if strings.Count(c.Voice.ErrorFormat, "%s") != 1 {
		return fmt.Errorf("voice.error_format 必须包含且仅包含一个 %%s")
	}
	if _, err := c.ProviderTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// ProviderTimeoutDuration 返回外部服务调用超时，0表示不限时
func (c *Config) ProviderTimeoutDuration() (time.Duration, error) {
	if c.Server.ProviderTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Server.ProviderTimeout)
	if err != nil {
		return 0, fmt.Errorf("server.provider_timeout 格式错误: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("server.provider_timeout 不能为负数")
	}
	return d, nil
}

// SelectedLLM 返回当前选择的LLM名称和配置
func (c *Config) SelectedLLM() (string, LLMConfig) {
	name := c.SelectedModule["LLM"]
	return name, c.LLM[name]
}

// SelectedVLLLM 返回当前选择的VLLLM名称和配置
func (c *Config) SelectedVLLLM() (string, VLLMConfig) {
	name := c.SelectedModule["VLLLM"]
	return name, c.VLLLM[name]
}

// SelectedASR 返回当前选择的ASR名称和配置
func (c *Config) SelectedASR() (string, ASRConfig) {
	name := c.SelectedModule["ASR"]
	return name, c.ASR[name]
}

// Type 返回ASR配置中的 type 字段，缺省时使用配置名
func (a ASRConfig) Type(fallback string) string {
	if t, ok := a["type"].(string); ok && t != "" {
		return t
	}
	return fallback
}
