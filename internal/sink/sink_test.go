package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cdbrkfxrpt/magritte/internal/fluent"
)

func TestRunWithoutInitializeReturnsError(t *testing.T) {
	s := New(nil, Config{SubscribesTo: []string{"near_coast"}})
	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when Run is called before Initialize")
	}
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	s := New(nil, Config{})
	in := make(chan fluent.Fluent)
	s.Initialize(in, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunStopsWhenInputClosed(t *testing.T) {
	s := New(nil, Config{})
	in := make(chan fluent.Fluent)
	s.Initialize(in, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	close(in)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on clean channel close, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after input channel closed")
	}
}

func TestPublishesIsAlwaysEmpty(t *testing.T) {
	s := New(nil, Config{SubscribesTo: []string{"near_coast"}})
	if len(s.Publishes()) != 0 {
		t.Errorf("expected no published names, got %v", s.Publishes())
	}
}
