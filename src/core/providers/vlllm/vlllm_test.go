package vlllm

import (
	"context"
	"io"
	"testing"

	"medrelay-server-go/src/configs"
	"medrelay-server-go/src/core/image"
	"medrelay-server-go/src/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captionProvider struct {
	*BaseProvider
}

func (p *captionProvider) ResponseWithImage(ctx context.Context, img *image.Normalized, text string) (string, error) {
	return p.Config().ModelName + ":" + text, nil
}

func TestCreate(t *testing.T) {
	logger := utils.NewWriterLogger(io.Discard, "debug")
	Register("caption-test", func(config *Config, logger *utils.Logger) (Provider, error) {
		return &captionProvider{BaseProvider: NewBaseProvider(config, logger)}, nil
	})

	provider, err := Create("caption-test", &configs.VLLMConfig{Type: "caption-test", ModelName: "cap"}, logger)
	require.NoError(t, err)

	reply, err := provider.ResponseWithImage(context.Background(), &image.Normalized{}, "what is this")
	require.NoError(t, err)
	assert.Equal(t, "cap:what is this", reply)

	_, err = Create("missing", &configs.VLLMConfig{}, logger)
	assert.ErrorContains(t, err, "未知的VLLLM提供者")
}
