package core

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownCoordinator drains the close stack once on termination.
type ShutdownCoordinator struct {
	stack    *CloseStack
	observer observer
	once     sync.Once
	err      error
	done     chan struct{}
}

func NewShutdownCoordinator(stack *CloseStack, logger Logger, metrics MetricsRecorder) *ShutdownCoordinator {
	if stack == nil {
		stack = NewCloseStack()
	}
	return &ShutdownCoordinator{
		stack:    stack,
		observer: newObserver(logger, metrics),
		done:     make(chan struct{}),
	}
}

// Shutdown tears every close entry down, newest first. Only the first call
// drains; later calls wait for it and return the same result.
func (s *ShutdownCoordinator) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		defer close(s.done)
		startedAt := time.Now()
		pending := s.stack.Len()
		s.err = s.stack.Drain(ctx, s.observer.logger)
		s.observer.observe(ctx, startedAt, "shutdown", s.err, map[string]any{"entries": pending})
	})
	<-s.done
	return s.err
}

// Done is closed once the drain has finished.
func (s *ShutdownCoordinator) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until one of signals arrives (SIGINT and SIGTERM when none are
// given) or ctx ends, then shuts down. Teardown failures are logged, not
// escalated, so the exit code is always 0.
func (s *ShutdownCoordinator) Wait(ctx context.Context, signals ...os.Signal) int {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	signalCtx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()
	<-signalCtx.Done()
	s.observer.log(ctx, "info", "shutdown requested", nil)

	if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
		s.observer.log(ctx, "error", "shutdown completed with errors", map[string]any{"error": err.Error()})
	}
	return 0
}
