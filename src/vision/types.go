package vision

// VisionRequest Vision分析请求结构（从multipart表单解析）
type VisionRequest struct {
	Question string // 问题文本，缺失时为空串
	Image    []byte // 上传的原始图片数据
	Filename string // 上传时的文件名
}

// VisionResponse Vision响应结构，reply为模型原样输出
type VisionResponse struct {
	Reply string `json:"reply"`
}
