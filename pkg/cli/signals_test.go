package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandlerStop(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background())

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done before stop")
	case <-time.After(10 * time.Millisecond):
	}

	stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be done after stop")
	}
}

func TestSetupSignalHandlerParentCanceled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should follow its parent")
	}
}

func TestSetupSignalHandlerReceivesSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping signal test in short mode")
	}

	ctx, stop := SetupSignalHandler(context.Background())
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess() error = %v", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context should be canceled by SIGTERM")
	}
}

func TestShutdownSignals(t *testing.T) {
	if len(ShutdownSignals) != 2 {
		t.Fatalf("ShutdownSignals = %v, want interrupt and SIGTERM", ShutdownSignals)
	}
	if ShutdownSignals[1] != syscall.SIGTERM {
		t.Errorf("ShutdownSignals[1] = %v, want SIGTERM", ShutdownSignals[1])
	}
}
