package utils

import (
	"encoding/binary"
	"errors"
	"math"
	"math/bits"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWAV(t *testing.T) {
	src := &PCMAudio{Samples: []int16{0, 1000, -1000, 32767, -32768}, SampleRate: 16000}

	decoded, err := DecodeWAV(EncodeWAV(src))
	require.NoError(t, err)
	assert.Equal(t, src.SampleRate, decoded.SampleRate)
	assert.Equal(t, src.Samples, decoded.Samples)
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// 手工构造双声道WAV，并在data块前插入LIST块
	pcm := make([]byte, 8)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(100))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(300))
	binary.LittleEndian.PutUint16(pcm[4:], uint16(0xFFFF)) // -1
	binary.LittleEndian.PutUint16(pcm[6:], uint16(0xFFFD)) // -3

	data := []byte("RIFF\x00\x00\x00\x00WAVE")
	fmtChunk := make([]byte, 24)
	copy(fmtChunk, "fmt ")
	binary.LittleEndian.PutUint32(fmtChunk[4:], 16)
	binary.LittleEndian.PutUint16(fmtChunk[8:], 1)
	binary.LittleEndian.PutUint16(fmtChunk[10:], 2)
	binary.LittleEndian.PutUint32(fmtChunk[12:], 8000)
	binary.LittleEndian.PutUint32(fmtChunk[16:], 8000*4)
	binary.LittleEndian.PutUint16(fmtChunk[20:], 4)
	binary.LittleEndian.PutUint16(fmtChunk[22:], 16)
	data = append(data, fmtChunk...)
	data = append(data, []byte("LIST\x03\x00\x00\x00abc\x00")...)
	dataHeader := make([]byte, 8)
	copy(dataHeader, "data")
	binary.LittleEndian.PutUint32(dataHeader[4:], uint32(len(pcm)))
	data = append(data, dataHeader...)
	data = append(data, pcm...)

	audio, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, 8000, audio.SampleRate)
	assert.Equal(t, []int16{200, -2}, audio.Samples)
}

// buildWAV 构造单声道WAV，extensible为true时使用WAVE_FORMAT_EXTENSIBLE头
func buildWAV(format uint16, sampleRate, bitsPerSample int, extensible bool, pcm []byte) []byte {
	fmtSize := 16
	if extensible {
		fmtSize = 40
	}
	fmtChunk := make([]byte, 8+fmtSize)
	copy(fmtChunk, "fmt ")
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(fmtSize))
	binary.LittleEndian.PutUint16(fmtChunk[8:], format)
	binary.LittleEndian.PutUint16(fmtChunk[10:], 1)
	binary.LittleEndian.PutUint32(fmtChunk[12:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[16:], uint32(sampleRate*bitsPerSample/8))
	binary.LittleEndian.PutUint16(fmtChunk[20:], uint16(bitsPerSample/8))
	binary.LittleEndian.PutUint16(fmtChunk[22:], uint16(bitsPerSample))
	if extensible {
		binary.LittleEndian.PutUint16(fmtChunk[8:], 0xFFFE)
		binary.LittleEndian.PutUint16(fmtChunk[24:], 22)
		binary.LittleEndian.PutUint16(fmtChunk[32:], format)
	}

	data := []byte("RIFF\x00\x00\x00\x00WAVE")
	data = append(data, fmtChunk...)
	dataHeader := make([]byte, 8)
	copy(dataHeader, "data")
	binary.LittleEndian.PutUint32(dataHeader[4:], uint32(len(pcm)))
	data = append(data, dataHeader...)
	return append(data, pcm...)
}

func float32LE(values ...float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func TestDecodeWAVSampleFormats(t *testing.T) {
	tests := []struct {
		name       string
		format     uint16
		bits       int
		extensible bool
		pcm        []byte
		expected   []int16
	}{
		{
			name:     "24位PCM",
			format:   1,
			bits:     24,
			pcm:      []byte{0x56, 0x34, 0x12, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x80},
			expected: []int16{0x1234, -1, -32768},
		},
		{
			name:     "32位PCM",
			format:   1,
			bits:     32,
			pcm:      []byte{0xFF, 0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x01, 0x00},
			expected: []int16{32767, 1},
		},
		{
			name:     "32位浮点",
			format:   3,
			bits:     32,
			pcm:      float32LE(0.5, -1, 2),
			expected: []int16{16384, -32768, 32767},
		},
		{
			name:       "EXTENSIBLE浮点",
			format:     3,
			bits:       32,
			extensible: true,
			pcm:        float32LE(-0.25),
			expected:   []int16{-8192},
		},
		{
			name:       "EXTENSIBLE 24位PCM",
			format:     1,
			bits:       24,
			extensible: true,
			pcm:        []byte{0x00, 0x00, 0x40},
			expected:   []int16{16384},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio, err := DecodeAudio(buildWAV(tt.format, 44100, tt.bits, tt.extensible, tt.pcm))
			require.NoError(t, err)
			assert.Equal(t, 44100, audio.SampleRate)
			assert.Equal(t, tt.expected, audio.Samples)
		})
	}

	_, err := DecodeWAV(buildWAV(3, 8000, 16, false, []byte{0, 0}))
	assert.True(t, errors.Is(err, ErrUnsupportedAudio))
	_, err = DecodeWAV(buildWAV(2, 8000, 16, false, []byte{0, 0}))
	assert.True(t, errors.Is(err, ErrUnsupportedAudio))
}

// extendedRate 将整数采样率编码为80位扩展精度浮点
func extendedRate(rate int) []byte {
	out := make([]byte, 10)
	e := bits.Len64(uint64(rate)) - 1
	binary.BigEndian.PutUint16(out[0:], uint16(16383+e))
	binary.BigEndian.PutUint64(out[2:], uint64(rate)<<(63-e))
	return out
}

func buildAIFF(formType, compression string, sampleRate, bitsPerSample int, pcm []byte) []byte {
	comm := make([]byte, 18)
	binary.BigEndian.PutUint16(comm[0:], 1)
	binary.BigEndian.PutUint32(comm[2:], uint32(len(pcm)/(bitsPerSample/8)))
	binary.BigEndian.PutUint16(comm[6:], uint16(bitsPerSample))
	copy(comm[8:], extendedRate(sampleRate))
	if compression != "" {
		comm = append(comm, []byte(compression)...)
		comm = append(comm, 0, 0) // 空的压缩名称
	}

	chunk := func(id string, body []byte) []byte {
		header := make([]byte, 8)
		copy(header, id)
		binary.BigEndian.PutUint32(header[4:], uint32(len(body)))
		out := append(header, body...)
		if len(body)%2 == 1 {
			out = append(out, 0)
		}
		return out
	}

	data := []byte("FORM\x00\x00\x00\x00" + formType)
	data = append(data, chunk("COMM", comm)...)
	data = append(data, chunk("SSND", append(make([]byte, 8), pcm...))...)
	return data
}

func TestDecodeAIFF(t *testing.T) {
	tests := []struct {
		name        string
		formType    string
		compression string
		bits        int
		pcm         []byte
		expected    []int16
	}{
		{name: "16位大端", formType: "AIFF", bits: 16, pcm: []byte{0x01, 0x00, 0xFF, 0xFE}, expected: []int16{256, -2}},
		{name: "8位有符号", formType: "AIFF", bits: 8, pcm: []byte{0x40, 0xC0}, expected: []int16{16384, -16384}},
		{name: "AIFC无压缩", formType: "AIFC", compression: "NONE", bits: 24, pcm: []byte{0x12, 0x34, 0x56}, expected: []int16{0x1234}},
		{name: "AIFC小端", formType: "AIFC", compression: "sowt", bits: 16, pcm: []byte{0x00, 0x01}, expected: []int16{256}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio, err := DecodeAudio(buildAIFF(tt.formType, tt.compression, 22050, tt.bits, tt.pcm))
			require.NoError(t, err)
			assert.Equal(t, 22050, audio.SampleRate)
			assert.Equal(t, tt.expected, audio.Samples)
		})
	}

	_, err := DecodeAIFF(buildAIFF("AIFC", "ulaw", 8000, 8, []byte{0x00}))
	assert.True(t, errors.Is(err, ErrUnsupportedAudio))
}

func TestDecodeAudioRejectsUnknown(t *testing.T) {
	_, err := DecodeAudio([]byte("definitely not audio"))
	assert.True(t, errors.Is(err, ErrUnsupportedAudio))

	_, err = DecodeWAV([]byte("RIFF\x00\x00\x00\x00WAVE"))
	assert.True(t, errors.Is(err, ErrUnsupportedAudio))
}

func TestDecodeAudioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	src := &PCMAudio{Samples: make([]int16, 1600), SampleRate: 16000}
	require.NoError(t, os.WriteFile(path, EncodeWAV(src), 0644))

	audio, err := DecodeAudioFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, audio.Duration(), 1e-9)
}

func TestDetectAudioFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{name: "wav", input: []byte("RIFF\x00\x00\x00\x00WAVEfmt "), expected: "wav"},
		{name: "mp3 with id3", input: []byte("ID3\x04\x00"), expected: "mp3"},
		{name: "mp3 frame sync", input: []byte{0xFF, 0xFB, 0x90, 0x00}, expected: "mp3"},
		{name: "ogg", input: []byte("OggS\x00"), expected: "ogg"},
		{name: "flac", input: []byte("fLaC\x00"), expected: "flac"},
		{name: "aiff", input: []byte("FORM\x00\x00\x00\x00AIFF"), expected: "aiff"},
		{name: "aifc", input: []byte("FORM\x00\x00\x00\x00AIFC"), expected: "aiff"},
		{name: "webm", input: []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, expected: "webm"},
		{name: "empty", input: nil, expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectAudioFormat(tt.input))
		})
	}
}

func TestResample(t *testing.T) {
	src := &PCMAudio{Samples: []int16{0, 100, 200, 300, 400, 500}, SampleRate: 48000}

	out := src.Resample(16000)
	assert.Equal(t, 16000, out.SampleRate)
	assert.Equal(t, []int16{0, 300}, out.Samples)

	same := src.Resample(48000)
	assert.Equal(t, src.Samples, same.Samples)

	floats := (&PCMAudio{Samples: []int16{-32768, 0, 16384}}).Float32()
	assert.Equal(t, []float32{-1, 0, 0.5}, floats)
}
