package mutation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/clubdesk/internal/events"
)

// httpErr is a minimal StatusError.
type httpErr struct {
	code int
	msg  string
}

func (e *httpErr) Error() string         { return fmt.Sprintf("HTTP %d: %s", e.code, e.msg) }
func (e *httpErr) Status() int           { return e.code }
func (e *httpErr) ServerMessage() string { return e.msg }

// recorder collects events in order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) notify(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.Delay = time.Millisecond
	return p
}

// failing returns an operation that fails with errs in turn, then succeeds.
func failing(calls *atomic.Int32, errs ...error) func(context.Context) error {
	return func(context.Context) error {
		n := int(calls.Add(1))
		if n <= len(errs) {
			return errs[n-1]
		}
		return nil
	}
}

func always(calls *atomic.Int32, err error) func(context.Context) error {
	return func(context.Context) error {
		calls.Add(1)
		return err
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.Delay)
	assert.True(t, p.Retryable(&httpErr{code: 500}))
	assert.False(t, p.Retryable(&httpErr{code: 502}))
	assert.False(t, p.Retryable(errors.New("boom")))
}

func TestRetryBound(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	exec := NewExecutor(fastPolicy())

	m, res := exec.Run(context.Background(), Request{
		Name: "club.delete",
		Do:   always(&calls, &httpErr{code: 500, msg: "database timeout"}),
	}, rec.notify)

	assert.Equal(t, int32(3), calls.Load(), "exactly MaxAttempts attempts")
	assert.Equal(t, FailedTerminal, res.State)
	assert.Equal(t, FailedTerminal, m.State())
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, CategoryTransientServer, res.Category)
	assert.Equal(t, "server error: database timeout", res.Message)
	assert.Equal(t, []EventKind{EventRetrying, EventRetrying, EventFailed}, rec.kinds())

	evs := rec.all()
	assert.Equal(t, "retrying (attempt 2 of 3)", evs[0].String())
	assert.Equal(t, "retrying (attempt 3 of 3)", evs[1].String())
	assert.Equal(t, m.ID(), evs[2].MutationID)
}

func TestSuccessAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	exec := NewExecutor(fastPolicy())

	m, res := exec.Run(context.Background(), Request{
		Name: "club.approve",
		Do:   failing(&calls, &httpErr{code: 500}),
	}, rec.notify)

	require.True(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []EventKind{EventRetrying, EventSuccess}, rec.kinds())
	assert.Equal(t, 0, m.RetryContext().Attempt, "counter resets on success")
	assert.NoError(t, m.RetryContext().LastErr)
}

func TestTerminalFailuresDoNotRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"unauthorized", &httpErr{code: http.StatusUnauthorized}, CategoryAuthorization},
		{"forbidden", &httpErr{code: http.StatusForbidden}, CategoryAuthorization},
		{"not found", &httpErr{code: http.StatusNotFound}, CategoryNotFound},
		{"bad gateway", &httpErr{code: http.StatusBadGateway}, CategoryTransientServer},
		{"conflict", &httpErr{code: http.StatusConflict, msg: "club has tournaments"}, CategoryServerFault},
		{"refused", fmt.Errorf("performing request: %w", syscall.ECONNREFUSED), CategoryNetworkUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			rec := &recorder{}
			_, res := NewExecutor(fastPolicy()).Run(context.Background(), Request{Do: always(&calls, tt.err)}, rec.notify)

			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, FailedTerminal, res.State)
			assert.Equal(t, tt.want, res.Category)
			assert.Equal(t, []EventKind{EventFailed}, rec.kinds())
		})
	}
}

func TestPreflightMismatchBlocksCall(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	_, res := NewExecutor(fastPolicy()).Run(context.Background(), Request{
		Name:      "club.delete",
		Preflight: ConfirmPhrase("Alpha Club", "alpha club"),
		Do:        always(&calls, nil),
	}, rec.notify)

	assert.Zero(t, calls.Load(), "no network call")
	assert.Equal(t, CategoryClientInput, res.Category)
	assert.ErrorIs(t, res.Err, ErrConfirmation)
	assert.Contains(t, res.Message, `type "Alpha Club" to confirm`)
	assert.Equal(t, []EventKind{EventFailed}, rec.kinds())
}

func TestPreflightOtherErrorIsClientInput(t *testing.T) {
	_, res := NewExecutor(fastPolicy()).Run(context.Background(), Request{
		Preflight: func() error { return errors.New("reason is required") },
		Do:        func(context.Context) error { return nil },
	}, nil)
	assert.Equal(t, CategoryClientInput, res.Category)
	assert.Equal(t, "reason is required", res.Message)
}

func TestManualRetryReusesContext(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	exec := NewExecutor(fastPolicy())
	m := exec.New(Request{Do: failing(&calls, &httpErr{code: 500}, &httpErr{code: 500}, &httpErr{code: 500})}, rec.notify)

	id := m.ID()
	res := m.Run(context.Background())
	require.Equal(t, FailedTerminal, res.State)
	require.Equal(t, int32(3), calls.Load())

	res = m.Retry(context.Background())
	assert.True(t, res.OK())
	assert.Equal(t, id, res.ID)
	assert.Equal(t, id, m.RetryContext().ID)
	assert.Equal(t, int32(4), calls.Load())
}

func TestRetryRequiresFailure(t *testing.T) {
	exec := NewExecutor(fastPolicy())
	m := exec.New(Request{Do: func(context.Context) error { return nil }}, nil)

	assert.ErrorIs(t, m.Retry(context.Background()).Err, ErrNothingToRetry)
	require.True(t, m.Run(context.Background()).OK())
	assert.ErrorIs(t, m.Run(context.Background()).Err, ErrAlreadyRun)
	assert.ErrorIs(t, m.Retry(context.Background()).Err, ErrNothingToRetry)
}

func TestAbandonDuringDelayCancelsPendingAttempt(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	policy := DefaultPolicy()
	policy.Delay = time.Hour

	exec := NewExecutor(policy)
	retrying := make(chan struct{}, 1)
	m := exec.New(Request{Do: always(&calls, &httpErr{code: 500})}, func(ev Event) {
		rec.notify(ev)
		if ev.Kind == EventRetrying {
			retrying <- struct{}{}
		}
	})

	done := make(chan Result, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case <-retrying:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retry to be scheduled")
	}
	m.Abandon()

	select {
	case res := <-done:
		assert.Equal(t, Abandoned, res.State)
		assert.ErrorIs(t, res.Err, ErrAbandoned)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Abandon")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "scheduled attempt must not run")
	assert.Equal(t, []EventKind{EventRetrying}, rec.kinds(), "no events after abandonment")
	assert.Equal(t, Abandoned, m.State())
	assert.ErrorIs(t, m.Retry(context.Background()).Err, ErrAbandoned)
}

func TestParentCancelStopsRetry(t *testing.T) {
	var calls atomic.Int32
	policy := DefaultPolicy()
	policy.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	m := NewExecutor(policy).New(Request{Do: always(&calls, &httpErr{code: 500})}, func(ev Event) {
		if ev.Kind == EventRetrying {
			cancel()
		}
	})

	res := m.Run(ctx)
	assert.Equal(t, Abandoned, res.State)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAbandonBeforeRun(t *testing.T) {
	var calls atomic.Int32
	m := NewExecutor(fastPolicy()).New(Request{Do: always(&calls, nil)}, nil)
	m.Abandon()
	m.Abandon()

	res := m.Run(context.Background())
	assert.ErrorIs(t, res.Err, ErrAbandoned)
	assert.Zero(t, calls.Load())
}

func TestConcurrentRunIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := NewExecutor(fastPolicy()).New(Request{Do: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}, nil)

	done := make(chan Result, 1)
	go func() { done <- m.Run(context.Background()) }()
	<-started

	res := m.Run(context.Background())
	assert.ErrorIs(t, res.Err, ErrInFlight)
	assert.Equal(t, Attempting, res.State)

	close(release)
	assert.True(t, (<-done).OK())
}

func TestOutcomesArePublished(t *testing.T) {
	var calls atomic.Int32
	pub := &recordingPublisher{}
	exec := NewExecutor(fastPolicy(), WithPublisher(pub))

	exec.Run(context.Background(), Request{Do: failing(&calls, &httpErr{code: 500})}, nil)

	assert.Equal(t, []string{events.TopicMutationRetrying, events.TopicMutationSucceeded}, pub.topics)
}

func TestClassify(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "api.example.invalid"}
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: no route to host")}

	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, CategoryNone},
		{"500", &httpErr{code: 500}, CategoryTransientServer},
		{"wrapped 401", fmt.Errorf("approve: %w", &httpErr{code: 401}), CategoryAuthorization},
		{"410", &httpErr{code: 410}, CategoryNotFound},
		{"422", &httpErr{code: 422}, CategoryServerFault},
		{"dns", fmt.Errorf("performing request: %w", dnsErr), CategoryNetworkUnreachable},
		{"dial", dialErr, CategoryNetworkUnreachable},
		{"confirmation", ConfirmPhrase("a", "b")(), CategoryClientInput},
		{"other", errors.New("boom"), CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "cannot reach the server, check your connection",
		Describe(CategoryNetworkUnreachable, syscall.ECONNREFUSED))
	assert.Contains(t, Describe(CategoryAuthorization, &httpErr{code: 401}), "sign in again")
	assert.Contains(t, Describe(CategoryNotFound, &httpErr{code: 404}), "already")
	assert.Equal(t, "club has tournaments", Describe(CategoryServerFault, &httpErr{code: 409, msg: "club has tournaments"}))
	assert.Equal(t, "boom", Describe(CategoryUnknown, errors.New("boom")))
}
