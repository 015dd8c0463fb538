package audioring

import (
	"testing"
	"time"
)

func TestAudioRingBuffer(t *testing.T) {
	buffer := New(1024)

	if buffer.Capacity() != 1024 {
		t.Errorf("Expected capacity 1024, got %d", buffer.Capacity())
	}
	if buffer.Len() != 0 || buffer.Frames() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes / %d frames", buffer.Len(), buffer.Frames())
	}

	audio1 := AudioInput{
		Data:       []byte{1, 2, 3, 4, 5},
		Timestamp:  time.Now(),
		SampleRate: 16000,
		Channels:   1,
	}

	if err := buffer.Enqueue(audio1); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	if buffer.Frames() != 1 {
		t.Errorf("Expected 1 frame, got %d", buffer.Frames())
	}

	dequeued, ok := buffer.Dequeue()
	if !ok {
		t.Fatal("Failed to dequeue")
	}
	if string(dequeued.Data) != string(audio1.Data) {
		t.Errorf("Data mismatch: expected %v, got %v", audio1.Data, dequeued.Data)
	}
	if dequeued.SampleRate != audio1.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", audio1.SampleRate, dequeued.SampleRate)
	}
	if dequeued.Channels != audio1.Channels {
		t.Errorf("Expected channels %d, got %d", audio1.Channels, dequeued.Channels)
	}
	if buffer.Frames() != 0 {
		t.Errorf("Expected 0 frames after dequeue, got %d", buffer.Frames())
	}
}

func TestAudioRingBufferPeekAndFlush(t *testing.T) {
	buffer := New(1024)

	for i := 0; i < 3; i++ {
		audio := AudioInput{
			Data:       []byte{byte(i), byte(i + 1), byte(i + 2)},
			Timestamp:  time.Now().Add(time.Duration(i) * time.Millisecond),
			SampleRate: 16000,
			Channels:   1,
		}
		if err := buffer.Enqueue(audio); err != nil {
			t.Errorf("Failed to enqueue item %d: %v", i, err)
		}
	}

	peeked := buffer.PeekN(2)
	if len(peeked) != 2 {
		t.Fatalf("Expected 2 peeked items, got %d", len(peeked))
	}
	if peeked[1].Data[0] != 1 {
		t.Errorf("Expected second peeked frame to start with 1, got %d", peeked[1].Data[0])
	}
	if buffer.Frames() != 3 {
		t.Errorf("Peek must not consume, got %d frames", buffer.Frames())
	}

	ch := make(chan AudioInput, 10)
	if err := buffer.Flush(ch); err != nil {
		t.Errorf("Failed to flush: %v", err)
	}
	flushed := 0
	for range ch {
		flushed++
	}
	if flushed != 3 {
		t.Errorf("Expected 3 flushed items, got %d", flushed)
	}
	if buffer.Len() != 0 {
		t.Errorf("Buffer should be empty after flush, got length %d", buffer.Len())
	}
}

func TestAudioRingBufferEvictsOldest(t *testing.T) {
	// each frame: 4 prefix + 18 header + 10 data = 32 bytes
	buffer := New(100)

	for i := 0; i < 5; i++ {
		data := make([]byte, 10)
		data[0] = byte(i)
		if err := buffer.Enqueue(AudioInput{Data: data, Timestamp: time.Now()}); err != nil {
			t.Fatalf("Failed to enqueue %d: %v", i, err)
		}
	}

	if buffer.Frames() != 3 {
		t.Fatalf("Expected 3 frames to fit, got %d", buffer.Frames())
	}
	if buffer.Evicted() != 2 {
		t.Errorf("Expected 2 evictions, got %d", buffer.Evicted())
	}
	first, _ := buffer.Dequeue()
	if first.Data[0] != 2 {
		t.Errorf("Expected oldest surviving frame 2, got %d", first.Data[0])
	}
}

func TestAudioRingBufferRejectsOversizedFrame(t *testing.T) {
	buffer := New(32)
	err := buffer.Enqueue(AudioInput{Data: make([]byte, 64)})
	if err != ErrFrameTooLarge {
		t.Errorf("Expected ErrFrameTooLarge, got %v", err)
	}
}

func TestAudioInputSerialization(t *testing.T) {
	original := AudioInput{
		Data:       []byte{10, 20, 30, 40, 50},
		Timestamp:  time.Now(),
		SampleRate: 48000,
		Channels:   1,
	}

	data, err := original.MarshalBinary()
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var restored AudioInput
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if string(restored.Data) != string(original.Data) {
		t.Errorf("Data mismatch: expected %v, got %v", original.Data, restored.Data)
	}
	if restored.SampleRate != original.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", original.SampleRate, restored.SampleRate)
	}

	timeDiff := restored.Timestamp.Sub(original.Timestamp)
	if timeDiff < 0 {
		timeDiff = -timeDiff
	}
	if timeDiff > time.Microsecond {
		t.Errorf("Timestamp difference too large: %v", timeDiff)
	}

	if err := restored.UnmarshalBinary(data[:10]); err != ErrShortFrame {
		t.Errorf("Expected ErrShortFrame for truncated input, got %v", err)
	}
}

func TestChunkLogRotate(t *testing.T) {
	log := NewChunkLog(4096, 16000)

	for i := 0; i < 4; i++ {
		if err := log.Append([]byte{byte(i), 0}); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}
	if log.CurrentLen() != 4 {
		t.Fatalf("Expected 4 current chunks, got %d", log.CurrentLen())
	}

	prev := log.Rotate()
	if len(prev) != 4 || log.PreviousLen() != 4 {
		t.Fatalf("Expected 4 previous chunks, got %d", len(prev))
	}
	if log.CurrentLen() != 0 {
		t.Errorf("Expected empty current after rotate, got %d", log.CurrentLen())
	}
	for i, c := range prev {
		if c.Data[0] != byte(i) {
			t.Errorf("Order broken at %d: got %d", i, c.Data[0])
		}
	}

	_ = log.Append([]byte{9, 9})
	if got := log.Current(); len(got) != 1 || got[0].Data[0] != 9 {
		t.Errorf("Expected current to hold only the new chunk, got %v", got)
	}

	log.DiscardPrevious()
	if log.PreviousLen() != 0 {
		t.Errorf("Expected previous discarded, got %d", log.PreviousLen())
	}

	log.Reset()
	if log.CurrentLen() != 0 || log.PreviousLen() != 0 {
		t.Errorf("Expected both generations cleared")
	}
}
