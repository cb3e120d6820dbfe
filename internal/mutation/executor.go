// Package mutation runs destructive operations against the federation API
// with bounded automatic retry on transient server faults. Progress is
// reported through events: success, retrying (attempt N of M) and failed.
package mutation

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/events"
	"github.com/alfredjeanlab/clubdesk/internal/idgen"
)

// Policy bounds automatic retries.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

// DefaultPolicy retries internal server errors up to three attempts in
// total, two seconds apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Retryable:   RetryOnStatus(http.StatusInternalServerError),
	}
}

// State is the lifecycle position of a mutation.
type State int

const (
	Idle State = iota
	Attempting
	Succeeded
	FailedRetryable
	FailedTerminal
	Abandoned
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case FailedRetryable:
		return "failed-retryable"
	case FailedTerminal:
		return "failed-terminal"
	case Abandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind distinguishes outcome events.
type EventKind string

const (
	EventSuccess  EventKind = events.OutcomeSucceeded
	EventRetrying EventKind = events.OutcomeRetrying
	EventFailed   EventKind = events.OutcomeFailed
)

// Event is reported to the caller as a mutation progresses.
type Event struct {
	Kind        EventKind
	MutationID  string
	Name        string
	Target      string
	Attempt     int // for EventRetrying, the attempt about to be made
	MaxAttempts int
	Category    Category
	Message     string
	Err         error
}

func (e Event) String() string {
	switch e.Kind {
	case EventRetrying:
		return fmt.Sprintf("retrying (attempt %d of %d)", e.Attempt, e.MaxAttempts)
	case EventFailed:
		return "failed: " + e.Message
	default:
		return string(e.Kind)
	}
}

// RetryContext tracks one mutation sequence.
type RetryContext struct {
	ID          string
	Attempt     int // attempts made in the current round
	MaxAttempts int
	Reason      Category
	LastErr     error
}

// Request describes a mutation.
type Request struct {
	Name   string // e.g. "club.delete"
	Target string // entity ID
	// Preflight runs before every round; a failure blocks the call with no
	// network round-trip.
	Preflight func() error
	Do        func(ctx context.Context) error
}

// Result is the final outcome of a Run or Retry.
type Result struct {
	ID       string
	State    State
	Attempts int
	Category Category
	Message  string
	Err      error
}

// OK reports whether the mutation succeeded.
func (r Result) OK() bool { return r.State == Succeeded }

// Executor creates and runs mutations under a Policy.
type Executor struct {
	policy    Policy
	logger    *zap.Logger
	publisher events.Publisher
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithPublisher mirrors every outcome event to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Executor) { e.publisher = p }
}

// NewExecutor returns an executor for policy. Zero policy fields take their
// defaults.
func NewExecutor(policy Policy, opts ...Option) *Executor {
	def := DefaultPolicy()
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	if policy.Retryable == nil {
		policy.Retryable = def.Retryable
	}
	e := &Executor{policy: policy, logger: zap.NewNop(), publisher: &events.NoopPublisher{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy { return e.policy }

// New prepares a mutation without running it.
func (e *Executor) New(req Request, notify func(Event)) *Mutation {
	if notify == nil {
		notify = func(Event) {}
	}
	return &Mutation{
		exec:   e,
		req:    req,
		notify: notify,
		rc: RetryContext{
			ID:          idgen.New(idgen.MutationPrefix),
			MaxAttempts: e.policy.MaxAttempts,
		},
	}
}

// Run prepares and runs a mutation in one step.
func (e *Executor) Run(ctx context.Context, req Request, notify func(Event)) (*Mutation, Result) {
	m := e.New(req, notify)
	return m, m.Run(ctx)
}

// Mutation is one logical destructive operation and its retry state.
type Mutation struct {
	exec   *Executor
	req    Request
	notify func(Event)

	mu        sync.Mutex
	rc        RetryContext
	state     State
	running   bool
	abandoned bool
	cancel    context.CancelFunc
}

// ID returns the mutation's identifier.
func (m *Mutation) ID() string { return m.rc.ID }

// State returns the current lifecycle state.
func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RetryContext returns a snapshot of the retry bookkeeping.
func (m *Mutation) RetryContext() RetryContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rc
}

// Run performs the mutation, retrying transient failures per the policy. It
// blocks until the mutation succeeds, fails terminally, or is abandoned.
func (m *Mutation) Run(ctx context.Context) Result {
	return m.round(ctx, false)
}

// Retry re-enters Attempting after a terminal failure, keeping the same
// RetryContext. The attempt budget starts over.
func (m *Mutation) Retry(ctx context.Context) Result {
	return m.round(ctx, true)
}

// Abandon cancels the mutation. A pending re-attempt never fires and no
// further events are reported. Abandon is safe to call at any time.
func (m *Mutation) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.abandoned {
		return
	}
	m.abandoned = true
	if m.cancel != nil {
		m.cancel()
	}
	if !m.running && m.state != Succeeded {
		m.state = Abandoned
	}
}

func (m *Mutation) round(parent context.Context, manual bool) Result {
	m.mu.Lock()
	switch {
	case m.abandoned:
		m.mu.Unlock()
		return m.abandonedResult()
	case m.running:
		st := m.state
		m.mu.Unlock()
		return Result{ID: m.rc.ID, State: st, Err: ErrInFlight}
	case manual && m.state != FailedTerminal:
		st := m.state
		m.mu.Unlock()
		return Result{ID: m.rc.ID, State: st, Err: ErrNothingToRetry}
	case !manual && m.state != Idle:
		st := m.state
		m.mu.Unlock()
		return Result{ID: m.rc.ID, State: st, Err: ErrAlreadyRun}
	}
	ctx, cancel := context.WithCancel(parent)
	m.running = true
	m.cancel = cancel
	m.rc.Attempt = 0
	m.mu.Unlock()

	defer func() {
		cancel()
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
	}()

	log := m.exec.logger.With(zap.String("mutation", m.rc.ID), zap.String("name", m.req.Name),
		zap.String("target", m.req.Target))

	if m.req.Preflight != nil {
		if err := m.req.Preflight(); err != nil {
			if !IsInput(err) {
				err = &InputError{Err: err}
			}
			log.Debug("preflight rejected", zap.Error(err))
			return m.fail(ctx, CategoryClientInput, err)
		}
	}

	for {
		if ctx.Err() != nil {
			return m.stop()
		}
		m.setState(Attempting)
		err := m.req.Do(ctx)
		if err == nil {
			return m.succeed(ctx, log)
		}
		if m.isAbandoned() || parent.Err() != nil {
			return m.stop()
		}

		cat := Classify(err)
		m.mu.Lock()
		m.rc.Attempt++
		m.rc.Reason = cat
		m.rc.LastErr = err
		attempt := m.rc.Attempt
		m.mu.Unlock()

		if !m.exec.policy.Retryable(err) || attempt >= m.rc.MaxAttempts {
			log.Warn("mutation failed", zap.Int("attempts", attempt), zap.String("category", string(cat)), zap.Error(err))
			return m.fail(ctx, cat, err)
		}

		m.setState(FailedRetryable)
		log.Info("retrying mutation", zap.Int("attempt", attempt+1), zap.Error(err))
		m.emit(ctx, Event{
			Kind:     EventRetrying,
			Attempt:  attempt + 1,
			Category: cat,
			Message:  Describe(cat, err),
			Err:      err,
		})
		if !sleep(ctx, m.exec.policy.Delay) {
			return m.stop()
		}
	}
}

// sleep waits for d or until ctx is done, reporting whether the full delay
// elapsed. The timer is always stopped.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return ctx.Err() == nil
	}
}

func (m *Mutation) succeed(ctx context.Context, log *zap.Logger) Result {
	m.mu.Lock()
	attempts := m.rc.Attempt + 1
	m.rc.Attempt = 0
	m.rc.Reason = CategoryNone
	m.rc.LastErr = nil
	m.state = Succeeded
	m.mu.Unlock()

	log.Debug("mutation succeeded", zap.Int("attempts", attempts))
	m.emit(ctx, Event{Kind: EventSuccess, Attempt: attempts})
	return Result{ID: m.rc.ID, State: Succeeded, Attempts: attempts}
}

func (m *Mutation) fail(ctx context.Context, cat Category, err error) Result {
	msg := Describe(cat, err)
	m.mu.Lock()
	m.state = FailedTerminal
	m.rc.Reason = cat
	m.rc.LastErr = err
	attempts := m.rc.Attempt
	m.mu.Unlock()

	m.emit(ctx, Event{Kind: EventFailed, Attempt: attempts, Category: cat, Message: msg, Err: err})
	return Result{ID: m.rc.ID, State: FailedTerminal, Attempts: attempts, Category: cat, Message: msg, Err: err}
}

func (m *Mutation) stop() Result {
	m.mu.Lock()
	m.abandoned = true
	m.state = Abandoned
	m.mu.Unlock()
	return m.abandonedResult()
}

func (m *Mutation) abandonedResult() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Result{ID: m.rc.ID, State: Abandoned, Attempts: m.rc.Attempt, Err: ErrAbandoned}
}

func (m *Mutation) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Mutation) isAbandoned() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.abandoned
}

// emit reports ev unless the mutation has been abandoned.
func (m *Mutation) emit(ctx context.Context, ev Event) {
	if m.isAbandoned() {
		return
	}
	ev.MutationID = m.rc.ID
	ev.Name = m.req.Name
	ev.Target = m.req.Target
	ev.MaxAttempts = m.rc.MaxAttempts
	m.notify(ev)

	outcome := events.MutationOutcome{
		MutationID:  ev.MutationID,
		Name:        ev.Name,
		Target:      ev.Target,
		Kind:        string(ev.Kind),
		Attempt:     ev.Attempt,
		MaxAttempts: ev.MaxAttempts,
		Category:    string(ev.Category),
		Message:     ev.Message,
		Time:        time.Now().UTC(),
	}
	if err := events.PublishOutcome(context.WithoutCancel(ctx), m.exec.publisher, outcome); err != nil {
		m.exec.logger.Warn("publishing mutation outcome", zap.String("kind", outcome.Kind), zap.Error(err))
	}
}

// IsInput reports whether err is an operator input error.
func IsInput(err error) bool {
	return Classify(err) == CategoryClientInput
}
