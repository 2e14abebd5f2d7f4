package ipc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSendStopReachesListener(t *testing.T) {
	ch, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer ch.Close()

	ctx, reason := Listen(context.Background(), ch.WorkerEnd())
	if err := ch.SendStop(); err != nil {
		t.Fatalf("SendStop() error: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not cancelled by the sentinel")
	}
	if got := reason(); got != ReasonStop {
		t.Fatalf("reason = %v, want stop", got)
	}
}

func TestSendStopIsOneShot(t *testing.T) {
	ch, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer ch.Close()

	if err := ch.SendStop(); err != nil {
		t.Fatalf("first SendStop() error: %v", err)
	}
	if err := ch.SendStop(); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("second SendStop() = %v, want ErrAlreadySent", err)
	}
	if !ch.Sent() {
		t.Fatal("Sent() = false after SendStop")
	}
}

func TestSendStopWithoutReaderDoesNotBlock(t *testing.T) {
	// Nobody ever reads the worker side: the paired worker already exited.
	ch, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer ch.Close()

	done := make(chan error, 1)
	go func() { done <- ch.SendStop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SendStop() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SendStop blocked without a reader")
	}
}

func TestSendStopAfterClose(t *testing.T) {
	ch, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	_ = ch.Close()
	if err := ch.SendStop(); !errors.Is(err, ErrClosed) {
		t.Fatalf("SendStop() = %v, want ErrClosed", err)
	}
	if ch.WorkerEnd() != nil {
		t.Fatal("WorkerEnd() should be nil after Close")
	}
}

func TestListenIgnoresUnknownLinesAndReportsEOF(t *testing.T) {
	t.Parallel()
	ctx, reason := Listen(context.Background(), strings.NewReader("hello\nping\n"))
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not finish on EOF")
	}
	if got := reason(); got != ReasonEOF {
		t.Fatalf("reason = %v, want eof", got)
	}
}

func TestFromEnvUnpaired(t *testing.T) {
	t.Setenv(EnvStopFD, "")
	f, err := FromEnv()
	if err != nil || f != nil {
		t.Fatalf("FromEnv() = %v, %v; want nil, nil", f, err)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	t.Setenv(EnvStopFD, "three")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for non-numeric fd")
	}
}
