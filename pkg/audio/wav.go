package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wavHeaderSize is the size of the fixed RIFF/fmt/data header produced by
// EncodeWAV.
const wavHeaderSize = 44

// WAVInfo describes the audio format declared in a WAV file's fmt chunk.
type WAVInfo struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	// Frames is the number of sample frames in the data chunk (one frame
	// spans all channels).
	Frames int
}

// ErrNotWAV is returned by DecodeWAV when the input does not start with a
// RIFF/WAVE magic sequence.
var ErrNotWAV = errors.New("audio: not a RIFF/WAVE container")

// IsWAV reports whether data starts with the RIFF/WAVE magic bytes.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WAVE"
}

// EncodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container. The returned byte slice is suitable for direct
// submission to a whisper-server inference endpoint.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bps = 16
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(pcm)

	buf := make([]byte, wavHeaderSize+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], 1)                  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))   // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bps))        // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// DecodeWAV parses a WAV container and returns its declared format together
// with the samples converted to normalised float32 mono (multi-channel audio
// is down-mixed by averaging).
//
// Only uncompressed 16-bit PCM is supported; anything else is reported as an
// error. Chunks other than fmt and data (LIST, fact, ...) are skipped.
func DecodeWAV(data []byte) (WAVInfo, []float32, error) {
	var info WAVInfo

	if !IsWAV(data) {
		return info, nil, ErrNotWAV
	}

	var (
		haveFmt  bool
		pcm      []byte
		havePCM  bool
		blockAln int
	)

	// Walk the chunk list starting after the 12-byte RIFF descriptor.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			// Truncated chunk. A data chunk cut short by a partial write is
			// still decodable up to the bytes present.
			if id == "data" && body < len(data) {
				size = len(data) - body
			} else {
				return info, nil, fmt.Errorf("audio: truncated %q chunk", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return info, nil, fmt.Errorf("audio: fmt chunk too short (%d bytes)", size)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return info, nil, fmt.Errorf("audio: unsupported WAV format code %d (want PCM)", format)
			}
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			blockAln = int(binary.LittleEndian.Uint16(data[body+12 : body+14]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
			havePCM = true
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		off = body + size + (size & 1)
		if haveFmt && havePCM {
			break
		}
	}

	if !haveFmt {
		return info, nil, errors.New("audio: missing fmt chunk")
	}
	if !havePCM {
		return info, nil, errors.New("audio: missing data chunk")
	}
	if info.Channels <= 0 || info.SampleRate <= 0 {
		return info, nil, fmt.Errorf("audio: invalid format %dch/%dHz", info.Channels, info.SampleRate)
	}
	if info.BitsPerSample != 16 {
		return info, nil, fmt.Errorf("audio: unsupported bit depth %d (want 16)", info.BitsPerSample)
	}
	if blockAln <= 0 {
		blockAln = info.Channels * 2
	}
	info.Frames = len(pcm) / blockAln

	return info, PCMToFloat32Mono(pcm, info.Channels), nil
}
