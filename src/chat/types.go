package chat

// ChatResponse 文本问答响应，reply为模型原样输出
type ChatResponse struct {
	Reply string `json:"reply"`
}
