package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const defaultSampleRate = 16000

// wavHeader is the canonical 44-byte RIFF/WAVE header for one PCM data chunk.
type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

func newMonoPCM16Header(sampleRate int, dataSize uint32) wavHeader {
	const (
		channels      = 1
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)
	return wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		Channels:      channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
}

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	if err := WriteWAVPCM16LETo(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LETo writes raw PCM16LE mono audio bytes to out as a WAV stream.
// A non-positive sampleRate means 16 kHz.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	if len(pcm)%2 != 0 {
		return errors.New("pcm16 payload has an odd byte count")
	}
	if uint64(len(pcm)) > math.MaxUint32-36 {
		return errors.New("pcm16 payload too large for a wav container")
	}
	if err := binary.Write(out, binary.LittleEndian, newMonoPCM16Header(sampleRate, uint32(len(pcm)))); err != nil {
		return err
	}
	_, err := out.Write(pcm)
	return err
}
