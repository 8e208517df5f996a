package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type factoryCall struct {
	owner    string
	name     string
	create   Factory
	teardown Teardown
	timeout  time.Duration
	logger   Logger
}

type factoryResult struct {
	instance any
	err      error
}

// run invokes the factory bounded by the call timeout. When the deadline
// passes first the caller gets a FactoryTimeoutError and an instance that
// arrives later is torn down in the background.
func (c factoryCall) run(ctx context.Context, src Source) (any, error) {
	if c.timeout <= 0 {
		return c.safeCreate(ctx, src)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	done := make(chan factoryResult, 1)
	go func() {
		instance, err := c.safeCreate(callCtx, src)
		done <- factoryResult{instance: instance, err: err}
	}()

	select {
	case result := <-done:
		cancel()
		return result.instance, result.err
	case <-callCtx.Done():
		cause := callCtx.Err()
		go c.discardLate(done, cancel)
		if errors.Is(cause, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &FactoryTimeoutError{Owner: c.owner, Name: c.name, Timeout: c.timeout}
		}
		return nil, ctx.Err()
	}
}

func (c factoryCall) discardLate(done <-chan factoryResult, cancel context.CancelFunc) {
	defer cancel()
	result := <-done
	if result.err != nil || result.instance == nil || c.teardown == nil {
		return
	}
	if err := safeTeardown(context.Background(), c.teardown, result.instance); err != nil && c.logger != nil {
		c.logger.Warn("late factory result teardown failed", "owner", c.owner, "service", c.name, "error", err)
	}
}

func (c factoryCall) safeCreate(ctx context.Context, src Source) (instance any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			instance = nil
			err = fmt.Errorf("core: factory %q for %q panicked: %v", c.name, c.owner, recovered)
		}
	}()
	return c.create(ctx, src)
}

func safeTeardown(ctx context.Context, teardown Teardown, instance any) (err error) {
	if teardown == nil {
		return nil
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("core: teardown panicked: %v", recovered)
		}
	}()
	return teardown(ctx, instance)
}
