package stt

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStreamDurationExceeded is returned when the service closes a
	// stream for running past its maximum duration.
	ErrStreamDurationExceeded = errors.New("stt: stream duration exceeded")
	// ErrStreamClosed is returned by Send after Close or after the
	// service ended the stream.
	ErrStreamClosed = errors.New("stt: stream closed")
	// ErrSendQueueFull is returned by Send when the outbound queue is
	// full and the chunk was dropped.
	ErrSendQueueFull = errors.New("stt: send queue full")
)

type Encoding string

const (
	EncodingLinear16 Encoding = "LINEAR16"
)

type DiarizationConfig struct {
	Enabled     bool
	MinSpeakers int32
	MaxSpeakers int32
}

type StreamConfig struct {
	Encoding       Encoding
	SampleRateHz   int32
	LanguageCode   string
	Diarization    DiarizationConfig
	InterimResults bool
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Encoding:     EncodingLinear16,
		SampleRateHz: 16000,
		LanguageCode: "en-US",
		Diarization: DiarizationConfig{
			Enabled:     true,
			MinSpeakers: 2,
			MaxSpeakers: 2,
		},
		InterimResults: true,
	}
}

type Word struct {
	Word string
	// 0 when the service did not attribute the word
	SpeakerTag int
}

type Alternative struct {
	Transcript string
	Confidence float32
	Words      []Word
}

// Result is one recognition result within a stream.
type Result struct {
	Alternatives []Alternative
	IsFinal      bool
	// progress within the stream, measured from its first audio byte
	ResultEndTime time.Duration
}

func (r Result) Transcript() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// Stream is one bounded recognition connection.
type Stream interface {
	// Send queues audio. It never blocks on the network and returns
	// ErrStreamClosed once the stream is done.
	Send(chunk []byte) error
	// Results is closed when the stream ends.
	Results() <-chan Result
	// Errors delivers terminal stream errors. A duration overrun is
	// delivered as ErrStreamDurationExceeded.
	Errors() <-chan error
	Close() error
}

type Recognizer interface {
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
	Name() string
}
