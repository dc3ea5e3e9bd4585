// Package asyncop tracks the lifecycle of asynchronous operations: it runs
// caller-supplied work with a per-attempt timeout, retries failures with
// exponential backoff, and fans state changes out to subscribers so UI-facing
// components can render loading and error states without owning the work.
//
// A Manager is an explicit instance; construct one with New and inject it
// into consumers. Operations are keyed by caller-chosen ids. Cancellation is
// state-level only: Cancel suppresses future automatic retries and resets
// observable state, but an attempt already running keeps running and merely
// has its result ignored.
package asyncop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrEmptyID      = errors.New("asyncop: operation id must not be empty")
	ErrNilOperation = errors.New("asyncop: operation func must not be nil")
)

// TimeoutError is synthesized when the timeout wins the race against the
// operation.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %dms", e.Timeout.Milliseconds())
}

// Manager orchestrates execution, retry and state tracking for operations.
type Manager struct {
	store    *stateStore
	notifier *notifier
	recorder Recorder

	timerMu sync.Mutex
	timers  map[string]*time.Timer
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Manager)

// WithRecorder attaches an outcome observer (e.g. a metrics recorder).
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

func New(opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    newStateStore(),
		notifier: newNotifier(),
		recorder: nopRecorder{},
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Execute runs op once, racing it against its timeout. On failure the state
// records the error and, while RetryCount < MaxRetries, a background retry is
// scheduled at RetryDelayBase * 2^(RetryCount-1). The returned error always
// reflects this attempt; automatic retries are observable only through
// Subscribe, never through the original caller.
func (m *Manager) Execute(ctx context.Context, op Operation) (any, error) {
	if op.id == "" {
		return nil, ErrEmptyID
	}
	if op.run == nil {
		return nil, ErrNilOperation
	}

	// A fresh execution supersedes any retry already scheduled for this id.
	m.cancelTimer(op.id)

	now := time.Now()
	state := m.store.update(op.id, func(s *LoadingState) {
		s.IsLoading = true
		s.Error = ""
		s.LastAttempt = &now
	})
	m.notifier.notify(op.id, state)
	m.recorder.OperationStarted(op.id)

	result, err := m.attempt(ctx, op)
	if err == nil {
		state = m.store.update(op.id, func(s *LoadingState) {
			s.IsLoading = false
			s.Error = ""
			s.RetryCount = 0
		})
		m.notifier.notify(op.id, state)
		m.recorder.OperationSucceeded(op.id)
		return result, nil
	}

	msg := err.Error()
	state = m.store.update(op.id, func(s *LoadingState) {
		s.IsLoading = false
		s.Error = msg
		s.RetryCount++
	})
	m.notifier.notify(op.id, state)
	m.recorder.OperationFailed(op.id)

	if state.RetryCount < op.opts.MaxRetries {
		delay := backoffDelay(op.opts.RetryDelayBase, state.RetryCount)
		m.scheduleRetry(op, delay)
		m.recorder.RetryScheduled(op.id, state.RetryCount, delay)
	} else {
		m.recorder.RetriesExhausted(op.id)
	}
	return nil, err
}

// Retry resets the retry budget for op's id, bypassing backoff, and runs it
// again. Meant for a user-driven "try again" after automatic retries are
// exhausted.
func (m *Manager) Retry(ctx context.Context, op Operation) (any, error) {
	if op.id == "" {
		return nil, ErrEmptyID
	}
	state := m.store.update(op.id, func(s *LoadingState) {
		s.RetryCount = 0
		s.Error = ""
	})
	m.notifier.notify(op.id, state)
	return m.Execute(ctx, op)
}

// Cancel stops any pending retry for id and resets its state to the default.
// It does not abort an attempt already mid-flight; that attempt's late result
// is ignored only in the sense that nobody is waiting on the retry timer.
func (m *Manager) Cancel(id string) {
	m.cancelTimer(id)
	m.store.remove(id)
	m.notifier.notify(id, LoadingState{})
}

// GetState returns the current state for id, or the zero-value default if the
// id has never been seen.
func (m *Manager) GetState(id string) LoadingState {
	return m.store.get(id)
}

// Subscribe registers fn to receive every state change for id, synchronously,
// until the returned func is called.
func (m *Manager) Subscribe(id string, fn Listener) func() {
	return m.notifier.subscribe(id, fn)
}

// HasActiveOperations reports whether any tracked id is currently loading.
func (m *Manager) HasActiveOperations() bool {
	return m.store.hasActive()
}

// ActiveOperations returns a sorted snapshot of ids currently loading.
func (m *Manager) ActiveOperations() []string {
	return m.store.activeIDs()
}

// Clear cancels all pending timers and wipes every state record and
// subscription. Intended for application teardown and test reset.
func (m *Manager) Clear() {
	m.timerMu.Lock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.timerMu.Unlock()

	m.store.reset()
	m.notifier.reset()
}

// attempt races op.run against the per-attempt timeout. The operation runs in
// its own goroutine with a deadline-carrying context; when the timeout wins,
// the goroutine is left to finish on its own and its result is dropped.
func (m *Manager) attempt(ctx context.Context, op Operation) (any, error) {
	runCtx, cancel := context.WithTimeout(ctx, op.opts.Timeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%v", r)}
			}
		}()
		result, err := op.run(runCtx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: op.opts.Timeout}
		}
		return nil, runCtx.Err()
	}
}

func (m *Manager) scheduleRetry(op Operation, delay time.Duration) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if t, ok := m.timers[op.id]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		m.timerMu.Lock()
		current, ok := m.timers[op.id]
		if !ok || current != t {
			// Canceled or superseded between firing and acquiring the lock.
			m.timerMu.Unlock()
			return
		}
		delete(m.timers, op.id)
		m.timerMu.Unlock()

		// Fire-and-forget: the background retry resolves nobody's call.
		_, _ = m.Execute(context.Background(), op)
	})
	m.timers[op.id] = t
}

func (m *Manager) cancelTimer(id string) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

// backoffDelay computes base * 2^(retryCount-1).
func backoffDelay(base time.Duration, retryCount int) time.Duration {
	if retryCount <= 1 {
		return base
	}
	return base << (retryCount - 1)
}
