package gosherpa

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medrelay-server-go/src/core/providers/asr"
	"medrelay-server-go/src/core/utils"

	"github.com/gorilla/websocket"
)

const (
	// SampleRate sherpa-onnx 模型使用的采样率
	SampleRate = 16000
	// 单个websocket帧的最大负载
	payloadSize = 10240
)

// Provider 连接本地 sherpa-onnx 离线识别服务（offline-websocket-server）
type Provider struct {
	*asr.BaseProvider
	addr   string
	dialer websocket.Dialer
}

type recognitionResult struct {
	Text string `json:"text"`
}

// NewProvider 创建sherpa ASR提供者
func NewProvider(config *asr.Config, logger *utils.Logger) (asr.Provider, error) {
	addr := config.String("addr", "")
	if addr == "" {
		return nil, fmt.Errorf("gosherpa缺少addr配置")
	}
	return &Provider{
		BaseProvider: asr.NewBaseProvider(config, logger),
		addr:         addr,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second, // 设置握手超时
		},
	}, nil
}

// Transcribe 识别音频文件，每次识别使用一条独立连接
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := utils.DecodeAudioFile(audioPath)
	if err != nil {
		return "", err
	}
	if len(audio.Samples) == 0 {
		return "", asr.ErrUnrecognized
	}
	samples := audio.Resample(SampleRate).Float32()

	conn, _, err := p.dialer.DialContext(ctx, p.addr, nil)
	if err != nil {
		return "", &asr.RequestError{Err: err}
	}
	defer conn.Close()

	// 连接跟随请求上下文关闭
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := p.sendSamples(conn, samples); err != nil {
		return "", &asr.RequestError{Err: err}
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", &asr.RequestError{Err: err}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("Done")); err != nil {
		p.Logger().Debug("发送Done失败", map[string]interface{}{"error": err.Error()})
	}

	text := utils.NormalizeTranscript(parseResult(message))
	if text == "" {
		return "", asr.ErrUnrecognized
	}
	return text, nil
}

// sendSamples 发送采样率、字节数和float32样本，按帧大小切分
func (p *Provider) sendSamples(conn *websocket.Conn, samples []float32) error {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, int32(SampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(len(samples)*4))
	binary.Write(&buf, binary.LittleEndian, samples)

	data := buf.Bytes()
	for len(data) > 0 {
		n := min(payloadSize, len(data))
		if err := conn.WriteMessage(websocket.BinaryMessage, data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// parseResult 兼容纯文本和JSON两种返回格式
func parseResult(message []byte) string {
	trimmed := strings.TrimSpace(string(message))
	if strings.HasPrefix(trimmed, "{") {
		var result recognitionResult
		if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
			return result.Text
		}
	}
	return trimmed
}

func init() {
	asr.Register("gosherpa", NewProvider)
}
