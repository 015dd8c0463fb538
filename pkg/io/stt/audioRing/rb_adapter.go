package audioring

import (
	"encoding/binary"
	"errors"

	"github.com/smallnest/ringbuffer"
)

var (
	ErrFrameTooLarge = errors.New("audio frame too large for buffer")
	ErrShortFrame    = errors.New("audio frame truncated")
	ErrFlushBlocked  = errors.New("channel blocked during flush")
)

// every frame is stored as a 4 byte little endian length followed by
// the marshalled AudioInput
const sizePrefix = 4

type rb_impl struct {
	size    int
	frames  int
	evicted int
	rb      *ringbuffer.RingBuffer
}

// Capacity implements AudioRingBuffer.
func (r *rb_impl) Capacity() int {
	return r.size
}

// Enqueue implements AudioRingBuffer.
func (r *rb_impl) Enqueue(audioSlice AudioInput) error {
	data, err := audioSlice.MarshalBinary()
	if err != nil {
		return err
	}

	required := len(data) + sizePrefix
	if required > r.rb.Capacity() {
		return ErrFrameTooLarge
	}

	for r.rb.Free() < required {
		if !r.removeOldestFrame() {
			// framing lost, start over
			r.Reset()
			break
		}
		r.evicted++
	}

	prefix := make([]byte, sizePrefix)
	binary.LittleEndian.PutUint32(prefix, uint32(len(data)))
	if _, err := r.rb.Write(prefix); err != nil {
		return err
	}
	if _, err := r.rb.Write(data); err != nil {
		return err
	}
	r.frames++
	return nil
}

// Dequeue implements AudioRingBuffer.
func (r *rb_impl) Dequeue() (AudioInput, bool) {
	data, ok := r.readFrame()
	if !ok {
		return AudioInput{}, false
	}

	var audioInput AudioInput
	if err := audioInput.UnmarshalBinary(data); err != nil {
		return AudioInput{}, false
	}
	return audioInput, true
}

func (r *rb_impl) readFrame() ([]byte, bool) {
	if r.rb.IsEmpty() {
		return nil, false
	}

	prefix := make([]byte, sizePrefix)
	if n, err := r.rb.Read(prefix); err != nil || n != sizePrefix {
		return nil, false
	}
	size := int(binary.LittleEndian.Uint32(prefix))

	data := make([]byte, size)
	if size > 0 {
		if n, err := r.rb.Read(data); err != nil || n != size {
			return nil, false
		}
	}
	r.frames--
	return data, true
}

// removeOldestFrame drops the frame at the head of the ring.
func (r *rb_impl) removeOldestFrame() bool {
	_, ok := r.readFrame()
	return ok
}

// PeekN implements AudioRingBuffer. It decodes from a copy of the
// readable region and leaves the read pointer alone.
func (r *rb_impl) PeekN(n int32) []AudioInput {
	result := make([]AudioInput, 0, n)
	if r.rb.IsEmpty() || n <= 0 {
		return result
	}

	raw := r.rb.Bytes(nil)
	for off := 0; int32(len(result)) < n && off+sizePrefix <= len(raw); {
		size := int(binary.LittleEndian.Uint32(raw[off:]))
		off += sizePrefix
		if off+size > len(raw) {
			break
		}

		var audioInput AudioInput
		if err := audioInput.UnmarshalBinary(raw[off : off+size]); err != nil {
			break
		}
		result = append(result, audioInput)
		off += size
	}
	return result
}

// Drain implements AudioRingBuffer.
func (r *rb_impl) Drain() []AudioInput {
	out := make([]AudioInput, 0, r.frames)
	for {
		audio, ok := r.Dequeue()
		if !ok {
			break
		}
		out = append(out, audio)
	}
	r.Reset()
	return out
}

// Flush implements AudioRingBuffer.
func (r *rb_impl) Flush(ch chan<- AudioInput) error {
	defer close(ch)

	for !r.rb.IsEmpty() {
		audio, ok := r.Dequeue()
		if !ok {
			break
		}

		select {
		case ch <- audio:
		default:
			return ErrFlushBlocked
		}
	}
	return nil
}

// Len implements AudioRingBuffer.
func (r *rb_impl) Len() int {
	return r.rb.Length()
}

// Frames implements AudioRingBuffer.
func (r *rb_impl) Frames() int {
	return r.frames
}

// Evicted implements AudioRingBuffer.
func (r *rb_impl) Evicted() int {
	return r.evicted
}

// Reset implements AudioRingBuffer.
func (r *rb_impl) Reset() {
	r.rb.Reset()
	r.frames = 0
}

func New(size int) AudioRingBuffer {
	return &rb_impl{
		size: size,
		rb:   ringbuffer.New(size).SetBlocking(false),
	}
}
