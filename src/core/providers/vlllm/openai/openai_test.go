package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/image"
	"medrelay-server-go/src/core/providers/vlllm"
	"medrelay-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseWithImage(t *testing.T) {
	var captured openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Content: "Looks like a bruise."},
			}},
		})
	}))
	defer server.Close()

	logger := utils.NewWriterLogger(io.Discard, "debug")
	provider, err := vlllm.Create("openai", &configs.VLLMConfig{
		Type:    "openai",
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	}, logger)
	require.NoError(t, err)

	img := &image.Normalized{PNG: []byte{0x89, 'P', 'N', 'G'}}
	reply, err := provider.ResponseWithImage(context.Background(), img, "You are a helpful medical assistant. what is this?")
	require.NoError(t, err)
	assert.Equal(t, "Looks like a bruise.", reply)

	require.Len(t, captured.Messages, 1)
	parts := captured.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, "You are a helpful medical assistant. what is this?", parts[0].Text)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,iVBORw==", parts[1].ImageURL.URL)
}

func TestInitializeRequiresKey(t *testing.T) {
	_, err := vlllm.Create("openai", &configs.VLLMConfig{Type: "openai"}, utils.NewWriterLogger(io.Discard, "debug"))
	assert.Error(t, err)
}
