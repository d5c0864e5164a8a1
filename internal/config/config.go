package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了 HTTP 服务的监听与跨域配置。
type ServerConfig struct {
	Address        string   `yaml:"address"`        // HTTP 监听地址 (例如: ":8000")
	AllowedOrigins []string `yaml:"allowedOrigins"` // CORS 允许的来源列表，为空时默认仅允许 localhost
}

// LLMConfig 包含了 LLM 提供商的配置。
// APIKey 为空时，所有依赖 LLM 的环节均降级为各自的确定性回退路径。
type LLMConfig struct {
	Provider string `yaml:"provider"` // LLM提供商 (当前支持: "openai")
	APIKey   string `yaml:"apiKey"`   // API 密钥，可被环境变量 OPENAI_API_KEY 覆盖
	BaseURL  string `yaml:"baseURL"`  // 可选的 API 基地址，用于代理或兼容服务
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`  // MongoDB 服务器地址
	Username string `yaml:"username"` // 用户名
	Password string `yaml:"password"` // 密码
	Database string `yaml:"database"` // 数据库名称
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
// 上传的音频/照片原始文件存放在对象存储中，任务队列只携带对象引用。
type MinIOConfig struct {
	Enabled   bool   `yaml:"enabled"`   // 未启用时原始文件不落盘，仅保留元数据
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	MongoDB MongoConfig `yaml:"mongodb"` // MongoDB 数据库配置
	MinIO   MinIOConfig `yaml:"minio"`   // MinIO 对象存储配置
}

// PipelineConfig 定义了工作流调度相关的参数。
type PipelineConfig struct {
	GateTimeout  string `yaml:"gateTimeout"`  // 分类阶段等待前置任务完成的总时限 (例如: "30s")
	PollInterval string `yaml:"pollInterval"` // 轮询任务完成状态的间隔 (例如: "500ms")
}

// GateTimeoutDuration 解析 GateTimeout，非法或缺省时返回 30s。
func (p PipelineConfig) GateTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.GateTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// PollIntervalDuration 解析 PollInterval，非法或缺省时返回 500ms。
func (p PipelineConfig) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(p.PollInterval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App       AppInfo         `yaml:"app"`       // 应用程序信息
	Logger    LoggerConfig    `yaml:"logger"`    // 日志记录器配置
	Server    ServerConfig    `yaml:"server"`    // HTTP 服务配置
	LLM       LLMConfig       `yaml:"llm"`       // LLM 配置部分
	Databases DatabaseConfigs `yaml:"databases"` // 数据库配置
	Pipeline  PipelineConfig  `yaml:"pipeline"`  // 工作流调度配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	// 将 YAML 内容解析到 cfg 结构体中。
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}

	// 敏感信息优先从环境变量读取，便于云端部署时不落盘。
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Databases.MongoDB.Address = v
	}

	return &cfg, nil
}
