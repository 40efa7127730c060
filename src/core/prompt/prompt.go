package prompt

// Build 将指令前缀和用户文本直接拼接，不插入分隔符也不裁剪空白
func Build(prefix, text string) string {
	return prefix + text
}
