package voice

// VoiceResponse 语音问答响应
type VoiceResponse struct {
	RecognizedText string `json:"recognized_text"` // 识别文本或占位文本
	Reply          string `json:"reply"`           // 模型原样输出
}
