package prompt

import (
	"testing"
)

func TestBuild(t *testing.T) {
	const prefix = "You are a helpful medical assistant. "

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "普通文本",
			text:     "I have a headache",
			expected: "You are a helpful medical assistant. I have a headache",
		},
		{
			name:     "空文本",
			text:     "",
			expected: "You are a helpful medical assistant. ",
		},
		{
			name:     "占位文本",
			text:     "[Could not understand audio]",
			expected: "You are a helpful medical assistant. [Could not understand audio]",
		},
		{
			name:     "保留空白",
			text:     "  spaced  ",
			expected: "You are a helpful medical assistant.   spaced  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(prefix, tt.text); got != tt.expected {
				t.Errorf("Build() = %q, 期望 %q", got, tt.expected)
			}
		})
	}
}
