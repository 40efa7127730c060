package gemini

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/providers/googleai/googleaitest"
	"medrelay-server-go/src/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestProvider(t *testing.T, generator googleaitest.GeneratorFunc) *Provider {
	t.Helper()
	provider, err := NewProvider(&asr.Config{Data: map[string]interface{}{}}, utils.NewWriterLogger(io.Discard, "debug"))
	require.NoError(t, err)
	p := provider.(*Provider)
	p.generator = generator
	require.NoError(t, p.Initialize())
	return p
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.wav")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func wavBytes() []byte {
	return utils.EncodeWAV(&utils.PCMAudio{Samples: make([]int16, 160), SampleRate: 16000})
}

func TestTranscribe(t *testing.T) {
	p := newTestProvider(t, func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		require.Len(t, contents[0].Parts, 2)
		assert.Equal(t, DefaultPrompt, contents[0].Parts[0].Text)
		assert.Equal(t, "audio/wav", contents[0].Parts[1].InlineData.MIMEType)
		return googleaitest.TextResponse("I have chest pain.\n"), nil
	})

	text, err := p.Transcribe(context.Background(), writeFile(t, wavBytes()))
	require.NoError(t, err)
	assert.Equal(t, "I have chest pain.", text)
}

func TestTranscribeOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		reply       string
		callErr     error
		wantUnrec   bool
		wantRequest bool
	}{
		{name: "无法识别标记", reply: "[UNINTELLIGIBLE]", wantUnrec: true},
		{name: "空回复", reply: "  ", wantUnrec: true},
		{name: "服务失败", callErr: errors.New("503 overloaded"), wantRequest: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				if tt.callErr != nil {
					return nil, tt.callErr
				}
				return googleaitest.TextResponse(tt.reply), nil
			})

			_, err := p.Transcribe(context.Background(), writeFile(t, wavBytes()))
			require.Error(t, err)
			assert.Equal(t, tt.wantUnrec, errors.Is(err, asr.ErrUnrecognized))
			var reqErr *asr.RequestError
			assert.Equal(t, tt.wantRequest, errors.As(err, &reqErr))
		})
	}
}

func TestTranscribeUnknownFormat(t *testing.T) {
	p := newTestProvider(t, func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		t.Error("不应调用模型")
		return nil, nil
	})

	_, err := p.Transcribe(context.Background(), writeFile(t, []byte("garbage bytes")))
	assert.True(t, errors.Is(err, utils.ErrUnsupportedAudio))
}
