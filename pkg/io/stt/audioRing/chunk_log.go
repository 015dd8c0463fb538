package audioring

import "time"

// ChunkLog keeps two generations of audio: the chunks of the live
// recognition sub-session (current) and the full log of the one before
// it (previous), kept around only until its tail has been replayed.
//
// A ChunkLog is owned by a single goroutine and is not safe for
// concurrent use.
type ChunkLog struct {
	current    AudioRingBuffer
	previous   []AudioInput
	sampleRate int32
}

// smallest chunk CapacityFor budgets framing for, 10 ms at 16 kHz
const minFrameBytes = 320

// CapacityFor returns the bytes a generation needs to hold d of s16le
// mono audio at sampleRate, framing included, plus a quarter of headroom
// for settle and open delays.
func CapacityFor(d time.Duration, sampleRate int32) int {
	audio := d.Milliseconds() * int64(sampleRate) * 2 / 1000
	frames := audio/minFrameBytes + 1
	total := audio + frames*int64(frameHeaderSize+sizePrefix)
	return int(total + total/4)
}

// NewChunkLog sizes the current generation to capacityBytes. Once full,
// the oldest chunks of the current generation are evicted.
func NewChunkLog(capacityBytes int, sampleRate int32) *ChunkLog {
	return &ChunkLog{
		current:    New(capacityBytes),
		sampleRate: sampleRate,
	}
}

// Append records a chunk in the current generation.
func (c *ChunkLog) Append(chunk []byte) error {
	return c.current.Enqueue(AudioInput{
		Data:       chunk,
		Timestamp:  time.Now(),
		SampleRate: c.sampleRate,
		Channels:   1,
	})
}

// Rotate hands the current generation over to previous and starts an
// empty current. Whatever previous held before is dropped.
func (c *ChunkLog) Rotate() []AudioInput {
	c.previous = c.current.Drain()
	return c.previous
}

// Previous is the prior generation. Callers must not modify it.
func (c *ChunkLog) Previous() []AudioInput {
	return c.previous
}

// Current returns a copy of the current generation, oldest first.
func (c *ChunkLog) Current() []AudioInput {
	return c.current.PeekN(int32(c.current.Frames()))
}

func (c *ChunkLog) CurrentLen() int {
	return c.current.Frames()
}

func (c *ChunkLog) PreviousLen() int {
	return len(c.previous)
}

// Evicted counts chunks the current generation lost to overflow.
func (c *ChunkLog) Evicted() int {
	return c.current.Evicted()
}

func (c *ChunkLog) DiscardPrevious() {
	c.previous = nil
}

// Reset clears both generations.
func (c *ChunkLog) Reset() {
	c.current.Reset()
	c.previous = nil
}
