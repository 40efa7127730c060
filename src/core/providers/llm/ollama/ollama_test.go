package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medrelay-server-go/src/core/providers/llm"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Content: "echo: " + req.Messages[0].Content},
			}},
		})
	}))
	defer server.Close()

	provider, err := llm.Create("ollama", &llm.Config{BaseURL: server.URL + "/", ModelName: "llama3"})
	require.NoError(t, err)

	reply, err := provider.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply)
}

func TestInitializeValidation(t *testing.T) {
	tests := []struct {
		name   string
		config *llm.Config
	}{
		{name: "缺少URL", config: &llm.Config{ModelName: "llama3"}},
		{name: "缺少模型", config: &llm.Config{BaseURL: "http://127.0.0.1:11434"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := llm.Create("ollama", tt.config)
			assert.Error(t, err)
		})
	}
}
