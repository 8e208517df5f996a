package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CloseEntry is one created instance waiting for teardown.
type CloseEntry struct {
	Owner    string
	Name     string
	Instance any
	Close    Teardown
}

// CloseStack collects teardown entries from every scope and drains them
// last-in first-out exactly once.
type CloseStack struct {
	mu      sync.Mutex
	entries []CloseEntry
	closed  bool
}

func NewCloseStack() *CloseStack {
	return &CloseStack{}
}

// Push records entry. Entries without a Close func are ignored. Once the
// stack is closed Push returns ErrShutdownInProgress.
func (s *CloseStack) Push(entry CloseEntry) error {
	return s.PushAll([]CloseEntry{entry})
}

// PushAll records entries in order as one unit: either all are pushed or,
// when the stack is closed, none are.
func (s *CloseStack) PushAll(entries []CloseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShutdownInProgress
	}
	for _, entry := range entries {
		if entry.Close == nil {
			continue
		}
		s.entries = append(s.entries, entry)
	}
	return nil
}

func (s *CloseStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns a snapshot in push order.
func (s *CloseStack) Entries() []CloseEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CloseEntry(nil), s.entries...)
}

func (s *CloseStack) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Drain closes the stack to new pushes and tears every entry down, newest
// first. Failures and panics are logged and joined; the drain never stops
// early.
func (s *CloseStack) Drain(ctx context.Context, logger Logger) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for {
		entry, ok := s.pop()
		if !ok {
			break
		}
		if err := closeEntry(ctx, entry, logger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *CloseStack) pop() (CloseEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return CloseEntry{}, false
	}
	last := len(s.entries) - 1
	entry := s.entries[last]
	s.entries[last] = CloseEntry{}
	s.entries = s.entries[:last]
	return entry, true
}

// teardownEntries closes entries in reverse order, used when a tenant or a
// registration is abandoned before its entries reach the stack.
func teardownEntries(ctx context.Context, entries []CloseEntry, logger Logger) error {
	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		if err := closeEntry(ctx, entries[i], logger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeEntry(ctx context.Context, entry CloseEntry, logger Logger) error {
	if entry.Close == nil {
		return nil
	}
	if err := safeTeardown(ctx, entry.Close, entry.Instance); err != nil {
		wrapped := fmt.Errorf("core: close %s/%s: %w", entry.Owner, entry.Name, err)
		if logger != nil {
			logger.Error("service teardown failed", "owner", entry.Owner, "service", entry.Name, "error", err)
		}
		return wrapped
	}
	if logger != nil {
		logger.Debug("service closed", "owner", entry.Owner, "service", entry.Name)
	}
	return nil
}
