package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xpanvictor/interm/pkg/assistant"
	"github.com/xpanvictor/interm/pkg/resilience"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	fake := named("gemini", "hi")
	fake.Err = errors.New("quota exceeded")
	p := WithBreaker(fake, 2, time.Hour)

	if p.Name() != "gemini" {
		t.Errorf("Expected wrapped name, got %s", p.Name())
	}
	for i := 0; i < 2; i++ {
		if _, err := p.Generate(context.Background(), assistant.GenerateRequest{Prompt: "x"}); err == nil || errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatalf("call %d: expected provider error, got %v", i, err)
		}
	}
	if _, err := p.Generate(context.Background(), assistant.GenerateRequest{Prompt: "x"}); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Expected open circuit, got %v", err)
	}
	if n := len(fake.Calls()); n != 2 {
		t.Errorf("Expected 2 calls to reach the provider, got %d", n)
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	fake := named("openai", "hi")
	fake.Err = context.Canceled
	p := WithBreaker(fake, 1, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		_, err := p.Stream(ctx, assistant.GenerateRequest{Prompt: "x"}, func(string) error { return nil })
		if errors.Is(err, resilience.ErrCircuitOpen) {
			t.Fatal("cancelled calls should not open the circuit")
		}
	}
}
