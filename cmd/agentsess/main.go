package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, huh.ErrUserAborted) {
		os.Exit(130)
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, "agentsess:", err)
	os.Exit(1)
}

// exitError propagates a child process exit code unchanged.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
