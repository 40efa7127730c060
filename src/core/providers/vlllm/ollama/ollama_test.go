package ollama

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, url string) vlllm.Provider {
	t.Helper()
	provider, err := vlllm.Create("ollama", &configs.VLLMConfig{
		Type:      "ollama",
		BaseURL:   url,
		ModelName: "llava",
	}, utils.NewWriterLogger(io.Discard, "debug"))
	require.NoError(t, err)
	return provider
}

func TestResponseWithImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llava", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, []string{"iVBORw=="}, req.Messages[0].Images)

		w.Write([]byte(`{"model":"llava","message":{"role":"assistant","content":"an x-ray"},"done":true}`))
	}))
	defer server.Close()

	provider := newProvider(t, server.URL+"/")
	reply, err := provider.ResponseWithImage(context.Background(), &image.Normalized{PNG: []byte{0x89, 'P', 'N', 'G'}}, "describe")
	require.NoError(t, err)
	assert.Equal(t, "an x-ray", reply)
}

func TestResponseWithImageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"llava\" not found"}`))
	}))
	defer server.Close()

	provider := newProvider(t, server.URL)
	_, err := provider.ResponseWithImage(context.Background(), &image.Normalized{}, "describe")
	assert.ErrorContains(t, err, "not found")
}
