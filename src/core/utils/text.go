package utils

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeTranscript 去除首尾空白，并把连续空白合并为一个空格
func NormalizeTranscript(text string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
}

// ContainsMarker 忽略大小写判断文本中是否出现任一标记
func ContainsMarker(text string, markers ...string) bool {
	lower := strings.ToLower(text)
	for _, marker := range markers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
