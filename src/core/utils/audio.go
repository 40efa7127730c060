package utils

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedAudio 无法解析的音频容器或编码
var ErrUnsupportedAudio = errors.New("不支持的音频格式")

// PCMAudio 单声道16位PCM音频
type PCMAudio struct {
	Samples    []int16
	SampleRate int
}

// Duration 返回音频时长（秒）
func (a *PCMAudio) Duration() float64 {
	if a.SampleRate == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Resample 返回重采样到目标采样率的新音频
func (a *PCMAudio) Resample(sampleRate int) *PCMAudio {
	return &PCMAudio{
		Samples:    resamplePCM(a.Samples, a.SampleRate, sampleRate),
		SampleRate: sampleRate,
	}
}

// Bytes 返回16位小端序PCM字节
func (a *PCMAudio) Bytes() []byte {
	out := make([]byte, len(a.Samples)*2)
	for i, sample := range a.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// Float32 返回归一化到[-1,1]的浮点样本
func (a *PCMAudio) Float32() []float32 {
	out := make([]float32, len(a.Samples))
	for i, sample := range a.Samples {
		out[i] = float32(sample) / 32768.0
	}
	return out
}

// DetectAudioFormat 根据文件头判断音频格式
func DetectAudioFormat(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	case len(data) >= 12 && string(data[0:4]) == "FORM" && (string(data[8:12]) == "AIFF" || string(data[8:12]) == "AIFC"):
		return "aiff"
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return "ogg"
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return "flac"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm"
	}
	return "unknown"
}

// AudioMIMEType 返回音频格式对应的MIME类型
func AudioMIMEType(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mp3"
	case "ogg":
		return "audio/ogg"
	case "flac":
		return "audio/flac"
	case "aiff":
		return "audio/aiff"
	case "webm":
		return "audio/webm"
	}
	return "application/octet-stream"
}

// DecodeAudioFile 读取WAV、AIFF或MP3文件并解码为单声道PCM
func DecodeAudioFile(path string) (*PCMAudio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取音频文件失败: %w", err)
	}
	return DecodeAudio(data)
}

// DecodeAudio 根据文件头选择解码器
func DecodeAudio(data []byte) (*PCMAudio, error) {
	switch format := DetectAudioFormat(data); format {
	case "wav":
		return DecodeWAV(data)
	case "aiff":
		return DecodeAIFF(data)
	case "mp3":
		return DecodeMP3(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAudio, format)
	}
}

// DecodeWAV 解析RIFF/WAVE数据，支持8/16/24/32位整数PCM和32/64位浮点，多声道取平均混为单声道
func DecodeWAV(data []byte) (*PCMAudio, error) {
	if DetectAudioFormat(data) != "wav" {
		return nil, fmt.Errorf("%w: 缺少RIFF/WAVE头", ErrUnsupportedAudio)
	}

	var (
		audioFormat   uint16
		channels      int
		sampleRate    int
		bitsPerSample int
		pcm           []byte
		haveFmt       bool
	)

	// 逐块遍历，跳过LIST等非音频块
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		end := body + chunkSize
		if end > len(data) {
			end = len(data)
		}

		switch chunkID {
		case "fmt ":
			if end-body < 16 {
				return nil, fmt.Errorf("%w: fmt块长度不足", ErrUnsupportedAudio)
			}
			audioFormat = binary.LittleEndian.Uint16(data[body:])
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			// WAVE_FORMAT_EXTENSIBLE 的实际编码在子格式GUID的前两个字节
			if audioFormat == wavFormatExtensible {
				audioFormat = wavFormatPCM
				if end-body >= 26 {
					audioFormat = binary.LittleEndian.Uint16(data[body+24:])
				}
			}
			haveFmt = true
		case "data":
			pcm = data[body:end]
		}

		// 块按偶数字节对齐
		offset = body + chunkSize + chunkSize%2
	}

	if !haveFmt || pcm == nil {
		return nil, fmt.Errorf("%w: 缺少fmt或data块", ErrUnsupportedAudio)
	}
	if audioFormat != wavFormatPCM && audioFormat != wavFormatFloat {
		return nil, fmt.Errorf("%w: 非PCM编码(%d)", ErrUnsupportedAudio, audioFormat)
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: 声道数或采样率无效", ErrUnsupportedAudio)
	}

	samples, err := decodePCM(pcm, pcmLayout{
		channels: channels,
		bits:     bitsPerSample,
		float:    audioFormat == wavFormatFloat,
		unsigned: bitsPerSample == 8,
		order:    binary.LittleEndian,
	})
	if err != nil {
		return nil, err
	}
	return &PCMAudio{Samples: samples, SampleRate: sampleRate}, nil
}

// DecodeAIFF 解析AIFF和未压缩的AIFF-C（NONE、sowt）数据
func DecodeAIFF(data []byte) (*PCMAudio, error) {
	if DetectAudioFormat(data) != "aiff" {
		return nil, fmt.Errorf("%w: 缺少FORM/AIFF头", ErrUnsupportedAudio)
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		order         binary.ByteOrder = binary.BigEndian
		pcm           []byte
		haveComm      bool
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		end := body + chunkSize
		if end > len(data) {
			end = len(data)
		}

		switch chunkID {
		case "COMM":
			if end-body < 18 {
				return nil, fmt.Errorf("%w: COMM块长度不足", ErrUnsupportedAudio)
			}
			channels = int(binary.BigEndian.Uint16(data[body:]))
			bitsPerSample = int(binary.BigEndian.Uint16(data[body+6:]))
			sampleRate = int(math.Round(extendedToFloat(data[body+8 : body+18])))
			if end-body >= 22 {
				switch compression := string(data[body+18 : body+22]); compression {
				case "NONE":
				case "sowt":
					order = binary.LittleEndian
				default:
					return nil, fmt.Errorf("%w: 不支持的AIFF-C压缩 %s", ErrUnsupportedAudio, compression)
				}
			}
			haveComm = true
		case "SSND":
			if end-body < 8 {
				return nil, fmt.Errorf("%w: SSND块长度不足", ErrUnsupportedAudio)
			}
			start := body + 8 + int(binary.BigEndian.Uint32(data[body:]))
			if start > end {
				start = end
			}
			pcm = data[start:end]
		}

		offset = body + chunkSize + chunkSize%2
	}

	if !haveComm || pcm == nil {
		return nil, fmt.Errorf("%w: 缺少COMM或SSND块", ErrUnsupportedAudio)
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: 声道数或采样率无效", ErrUnsupportedAudio)
	}

	samples, err := decodePCM(pcm, pcmLayout{channels: channels, bits: bitsPerSample, order: order})
	if err != nil {
		return nil, err
	}
	return &PCMAudio{Samples: samples, SampleRate: sampleRate}, nil
}

// extendedToFloat 解析AIFF采样率使用的80位IEEE扩展精度浮点数
func extendedToFloat(b []byte) float64 {
	exponent := int(binary.BigEndian.Uint16(b[0:2]) & 0x7FFF)
	mantissa := binary.BigEndian.Uint64(b[2:10])
	value := math.Ldexp(float64(mantissa), exponent-16383-63)
	if b[0]&0x80 != 0 {
		return -value
	}
	return value
}

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// pcmLayout 交错PCM数据的样本布局
type pcmLayout struct {
	channels int
	bits     int
	float    bool
	unsigned bool // 8位WAV为无符号，8位AIFF为有符号
	order    binary.ByteOrder
}

// decodePCM 将交错多声道样本转为16位单声道
func decodePCM(pcm []byte, layout pcmLayout) ([]int16, error) {
	read, err := layout.sampleReader()
	if err != nil {
		return nil, err
	}

	width := layout.bits / 8
	frameSize := width * layout.channels
	frameCount := len(pcm) / frameSize
	samples := make([]int16, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum int32
		for ch := 0; ch < layout.channels; ch++ {
			pos := i*frameSize + ch*width
			sum += read(pcm[pos : pos+width])
		}
		samples[i] = int16(sum / int32(layout.channels))
	}
	return samples, nil
}

// sampleReader 返回把单个样本换算到16位范围的函数
func (l pcmLayout) sampleReader() (func([]byte) int32, error) {
	order := l.order
	switch {
	case l.float && l.bits == 32:
		return func(b []byte) int32 {
			return floatToPCM16(float64(math.Float32frombits(order.Uint32(b))))
		}, nil
	case l.float && l.bits == 64:
		return func(b []byte) int32 {
			return floatToPCM16(math.Float64frombits(order.Uint64(b)))
		}, nil
	case l.float:
		return nil, fmt.Errorf("%w: 不支持的浮点位深 %d", ErrUnsupportedAudio, l.bits)
	case l.bits == 8 && l.unsigned:
		return func(b []byte) int32 { return (int32(b[0]) - 128) << 8 }, nil
	case l.bits == 8:
		return func(b []byte) int32 { return int32(int8(b[0])) << 8 }, nil
	case l.bits == 16:
		return func(b []byte) int32 { return int32(int16(order.Uint16(b))) }, nil
	case l.bits == 24:
		return func(b []byte) int32 {
			if order == binary.ByteOrder(binary.BigEndian) {
				return (int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8) >> 16
			}
			return (int32(b[2])<<24 | int32(b[1])<<16 | int32(b[0])<<8) >> 16
		}, nil
	case l.bits == 32:
		return func(b []byte) int32 { return int32(order.Uint32(b)) >> 16 }, nil
	}
	return nil, fmt.Errorf("%w: 不支持的位深 %d", ErrUnsupportedAudio, l.bits)
}

func floatToPCM16(f float64) int32 {
	v := math.Round(f * 32768)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int32(v)
}

// DecodeMP3 解码MP3为单声道PCM
func DecodeMP3(r io.Reader) (*PCMAudio, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: 创建MP3解码器失败: %v", ErrUnsupportedAudio, err)
	}

	// go-mp3 解码为 16-bit little-endian stereo PCM
	pcmBytes, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("读取PCM数据失败: %w", err)
	}

	numMonoSamples := len(pcmBytes) / 4
	samples := make([]int16, numMonoSamples)
	for i := 0; i < numMonoSamples; i++ {
		left := int16(binary.LittleEndian.Uint16(pcmBytes[i*4:]))
		right := int16(binary.LittleEndian.Uint16(pcmBytes[i*4+2:]))
		samples[i] = int16((int32(left) + int32(right)) / 2)
	}

	return &PCMAudio{Samples: samples, SampleRate: decoder.SampleRate()}, nil
}

// EncodeWAV 将单声道PCM编码为WAV
func EncodeWAV(audio *PCMAudio) []byte {
	pcm := audio.Bytes()
	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	writeWavHeader(buf, len(pcm), audio.SampleRate, 1, 16)
	buf.Write(pcm)
	return buf.Bytes()
}

// 写入WAV文件头
func writeWavHeader(w io.Writer, dataSize int, sampleRate, channels, bitsPerSample int) {
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(dataSize+36))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(sampleRate*channels*bitsPerSample/8))
	binary.LittleEndian.PutUint16(header[32:], uint16(channels*bitsPerSample/8))
	binary.LittleEndian.PutUint16(header[34:], uint16(bitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))
	w.Write(header)
}

// resamplePCM 使用线性插值对PCM数据进行重采样
func resamplePCM(input []int16, inputSampleRate, outputSampleRate int) []int16 {
	if inputSampleRate == outputSampleRate || inputSampleRate <= 0 || outputSampleRate <= 0 {
		return input
	}

	inputLength := len(input)
	if inputLength == 0 {
		return []int16{}
	}

	ratio := float64(inputSampleRate) / float64(outputSampleRate)
	outputLength := int(float64(inputLength) / ratio)
	if outputLength == 0 {
		return []int16{}
	}

	output := make([]int16, outputLength)
	for i := 0; i < outputLength; i++ {
		srcIndex := float64(i) * ratio
		index := int(srcIndex)
		fraction := srcIndex - float64(index)

		if index >= inputLength-1 {
			output[i] = input[inputLength-1]
			continue
		}
		sample1 := float64(input[index])
		sample2 := float64(input[index+1])
		output[i] = int16(math.Round(sample1 + fraction*(sample2-sample1)))
	}

	return output
}
