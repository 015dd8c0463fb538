package adapters

import (
	"context"
	"errors"
	"testing"
	"time"
)

func drain(rc ContractResponseChannel) (string, []ContractResponseDelta) {
	var text string
	var all []ContractResponseDelta
	for batch := range rc {
		text += Join(batch)
		all = append(all, batch...)
	}
	return text, all
}

func TestProcessBatchesChunks(t *testing.T) {
	ad := New(ContractLLMCfg{DeltaBufferLimit: 2, DeltaTimeDuration: time.Hour})
	rc := make(ContractResponseChannel)

	got := make(chan string)
	var deltas []ContractResponseDelta
	go func() {
		var text string
		text, deltas = drain(rc)
		got <- text
	}()

	resp := ad.Process(context.Background(), func(ctx context.Context, onChunk func(string) error) (string, error) {
		for _, c := range []string{"Hel", "lo", " wor", "ld"} {
			if err := onChunk(c); err != nil {
				return "", err
			}
		}
		return "Hello world", nil
	}, rc)

	if resp.Error != nil || !resp.Done {
		t.Fatalf("Unexpected response %+v", resp)
	}
	if resp.Text != "Hello world" {
		t.Errorf("Expected full text, got %q", resp.Text)
	}
	if text := <-got; text != "Hello world" {
		t.Errorf("Expected streamed text to match, got %q", text)
	}
	if last := deltas[len(deltas)-1]; !last.Done {
		t.Error("Expected a trailing done delta")
	}
}

func TestProcessFlushesOnTimer(t *testing.T) {
	ad := New(ContractLLMCfg{DeltaBufferLimit: 100, DeltaTimeDuration: 5 * time.Millisecond})
	rc := make(ContractResponseChannel, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ad.Process(ctx, func(ctx context.Context, onChunk func(string) error) (string, error) {
		_ = onChunk("partial")
		<-ctx.Done()
		return "partial", ctx.Err()
	}, rc)

	select {
	case batch := <-rc:
		if Join(batch) != "partial" {
			t.Errorf("Expected timed flush of partial, got %q", Join(batch))
		}
	case <-time.After(time.Second):
		t.Fatal("timer never flushed the buffer")
	}
}

func TestProcessReportsError(t *testing.T) {
	ad := New(ContractLLMCfg{})
	rc := make(ContractResponseChannel, 8)
	boom := errors.New("boom")

	resp := ad.Process(context.Background(), func(ctx context.Context, onChunk func(string) error) (string, error) {
		return "", boom
	}, rc)
	if !errors.Is(resp.Error, boom) {
		t.Errorf("Expected boom, got %v", resp.Error)
	}
	_, deltas := drain(rc)
	if len(deltas) != 1 || !deltas[0].Done || !errors.Is(deltas[0].Error, boom) {
		t.Errorf("Expected one done delta carrying the error, got %+v", deltas)
	}
}
