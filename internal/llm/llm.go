package llm

import (
	"context"
	"fmt"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/config"
)

// ChatRequest 描述一次对话式生成调用。模型与温度由各环节的
// prompt 配置决定，而不是全局配置。
type ChatRequest struct {
	Model         string  // 模型名称 (例如: "gpt-4o-mini")
	SystemMessage string  // system 角色内容，可为空
	UserMessage   string  // user 角色内容
	Temperature   float32 // 采样温度
	JSONResponse  bool    // 是否要求模型输出 JSON 对象
}

// VisionRequest 描述一次图像理解调用（照片 OCR）。
type VisionRequest struct {
	Model     string // 模型名称
	Prompt    string // 针对图像的文本指令
	MIMEType  string // 图像内容类型 (例如: "image/jpeg")
	Data      []byte // 图像原始字节
	MaxTokens int    // 输出 token 上限
}

// Client 定义了所有大型语言模型客户端必须实现的通用接口。
// 调用方必须把它当作可失败的外部能力: 每个使用点都要有确定性回退路径。
type Client interface {
	// Chat 执行一次对话生成并返回文本结果。
	Chat(ctx context.Context, req *ChatRequest) (string, error)
	// ExtractImageText 从图像中抽取文字。
	ExtractImageText(ctx context.Context, req *VisionRequest) (string, error)
	// Transcribe 将音频转写为文本。
	Transcribe(ctx context.Context, filename string, data []byte) (string, error)
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 Client
// 接口的客户端。APIKey 为空时返回 (nil, nil)，调用方据此走回退路径。
func NewClient(cfg config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
