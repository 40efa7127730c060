package whisper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, handler http.HandlerFunc) (asr.Provider, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := asr.Create("whisper", &asr.Config{Type: "whisper", Data: map[string]interface{}{
		"api_key": "test-key",
		"url":     server.URL + "/v1",
	}}, utils.NewWriterLogger(io.Discard, "debug"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(path, utils.EncodeWAV(&utils.PCMAudio{Samples: make([]int16, 160), SampleRate: 16000}), 0644))
	return provider, path
}

func TestTranscribe(t *testing.T) {
	provider, path := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "voice.wav", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" I feel dizzy. "}`))
	})

	text, err := provider.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "I feel dizzy.", text)
}

func TestTranscribeEmpty(t *testing.T) {
	provider, path := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":""}`))
	})

	_, err := provider.Transcribe(context.Background(), path)
	assert.True(t, errors.Is(err, asr.ErrUnrecognized))
}

func TestTranscribeRequestError(t *testing.T) {
	provider, path := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := provider.Transcribe(context.Background(), path)
	var reqErr *asr.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
	assert.Contains(t, reqErr.Error(), "Incorrect API key provided")
}
