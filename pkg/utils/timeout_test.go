package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeoutReturnsValue(t *testing.T) {
	got, err := WithTimeout(context.Background(), time.Second, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	if err != nil || got != "done" {
		t.Errorf("expected done, got %q %v", got, err)
	}
}

func TestWithTimeoutIgnoredContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	_, err := WithTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
