// Package tts provides the interface for remote text-to-speech providers.
//
// The scan board speaks user-meaningful utterances through a remote
// synthesis service. Local, interruptible highlight speech does not go
// through this package (see announce.ExecHighlighter).
//
// Example usage:
//
//	provider, _ := tts.NewBackend(
//	    tts.WithBaseURL("http://localhost:5000"),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, tts.Request{Text: "Hello world", Channel: "personal"})
//	// result.Audio contains PCM16 samples
package tts

import (
	"context"
	"strconv"
	"time"
)

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request is one synthesis request.
type Request struct {
	// Text to speak.
	Text string

	// Channel routes the audio on the backend ("personal" or "system").
	Channel string
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round-trip in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec (e.g., pcm_24000).
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 44100, 22050).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM22 Encoding = "pcm_22050" // 22.05kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16
	EncodingPCM44 Encoding = "pcm_44100" // 44.1kHz mono PCM16
	EncodingPCM48 Encoding = "pcm_48000" // 48kHz mono PCM16
)

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingPCM44:
		return 44100
	case EncodingPCM48:
		return 48000
	default:
		return 24000 // Default to 24kHz
	}
}

// EncodingFromSampleRate returns the PCM16 encoding for a sample rate.
// Unknown rates map to a generic "pcm_<rate>" name.
func EncodingFromSampleRate(rate int) Encoding {
	for _, enc := range []Encoding{EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44, EncodingPCM48} {
		if SampleRateFromEncoding(enc) == rate {
			return enc
		}
	}
	return Encoding("pcm_" + strconv.Itoa(rate))
}

// PCMDuration returns the playback duration of mono PCM16 audio.
func PCMDuration(numBytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := numBytes / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
