package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Madhi07/canvaEditTool-V7/internal/audio"
)

// ErrDecodeFailed means the asset's bytes were fetched but could not be
// turned into playable PCM.
var ErrDecodeFailed = errors.New("audio decode failed")

// Buffer is decoded audio: interleaved stereo int16 at the engine rate.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Duration returns the playable length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 || b.Channels == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.Channels) / float64(b.SampleRate)
}

// FrameAt returns the interleaved sample pair at per-channel frame index
// i, or silence when i is out of range.
func (b *Buffer) FrameAt(i int) (left, right int16) {
	idx := i * b.Channels
	if i < 0 || idx+b.Channels > len(b.Samples) {
		return 0, 0
	}
	left = b.Samples[idx]
	right = left
	if b.Channels > 1 {
		right = b.Samples[idx+1]
	}
	return left, right
}

// DecodeBytes turns fetched asset bytes into a playable buffer. WAV data
// already at the engine rate decodes natively without spawning a
// process; everything else goes through ffmpeg, first via a stdin pipe
// and, for containers that need seekable input, via a temp file.
func DecodeBytes(sourceRef string, data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty asset", ErrDecodeFailed, sourceRef)
	}

	if isRIFF(data) {
		if buf, err := decodeWAV(data); err == nil {
			return buf, nil
		}
		// Unusual rate or bit depth: let ffmpeg resample it.
	}

	out, err := ffmpegPipe(data)
	if err != nil {
		out, err = ffmpegTempFile(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, sourceRef, err)
	}
	return pcmBuffer(out), nil
}

func isRIFF(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// decodeWAV handles the native fast path: 16-bit WAV already at the
// engine sample rate, mono or stereo.
func decodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if d.SampleRate != audio.SampleRate || d.BitDepth != audio.BitDepth {
		return nil, fmt.Errorf("wav is %dHz/%d-bit, needs transcode", d.SampleRate, d.BitDepth)
	}
	return fromIntBuffer(pcm)
}

// fromIntBuffer converts a decoded PCM buffer to the engine's interleaved
// stereo layout, duplicating mono into both channels.
func fromIntBuffer(pcm *gaudio.IntBuffer) (*Buffer, error) {
	switch pcm.Format.NumChannels {
	case 1:
		samples := make([]int16, len(pcm.Data)*2)
		for i, v := range pcm.Data {
			s := int16(v)
			samples[i*2] = s
			samples[i*2+1] = s
		}
		return &Buffer{Samples: samples, SampleRate: audio.SampleRate, Channels: audio.Channels}, nil
	case 2:
		samples := make([]int16, len(pcm.Data))
		for i, v := range pcm.Data {
			samples[i] = int16(v)
		}
		return &Buffer{Samples: samples, SampleRate: audio.SampleRate, Channels: audio.Channels}, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", pcm.Format.NumChannels)
	}
}

func ffmpegArgs(input string) []string {
	return []string{
		"-i", input,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	}
}

// ffmpegPipe decodes via stdin, avoiding a disk round-trip.
func ffmpegPipe(data []byte) ([]byte, error) {
	cmd := exec.Command("ffmpeg", ffmpegArgs("pipe:0")...)
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg pipe decode: %w", err)
	}
	return out, nil
}

// ffmpegTempFile decodes via a temp file for formats whose headers sit
// at the end of the container (mp4/m4a) and need seekable input.
func ffmpegTempFile(data []byte) ([]byte, error) {
	tmp, err := os.CreateTemp("", "canvaedit-asset-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	out, err := exec.Command("ffmpeg", ffmpegArgs(tmp.Name())...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg file decode: %w", err)
	}
	return out, nil
}

func pcmBuffer(raw []byte) *Buffer {
	// Ensure even byte count for int16 alignment
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}
	return &Buffer{Samples: samples, SampleRate: audio.SampleRate, Channels: audio.Channels}
}
