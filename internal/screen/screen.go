// Package screen owns one table of records: its query controller, its base
// collection and the mutations that invalidate it. A screen either fetches
// the whole collection and derives pages locally, or forwards the query to a
// server that paginates for it.
package screen

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/clubdesk/internal/mutation"
	"github.com/alfredjeanlab/clubdesk/internal/table"
)

// ErrStale is returned when a fetch was superseded by a newer one before it
// completed. Its result has been discarded.
var ErrStale = errors.New("stale response discarded")

// Mode says where filtering and pagination happen.
type Mode int

const (
	// ModeClient fetches the whole collection and derives pages locally.
	ModeClient Mode = iota
	// ModeServer forwards the query and receives one page.
	ModeServer
)

func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "client"
}

// WholeFunc fetches an entire collection.
type WholeFunc[T any] func(ctx context.Context) ([]T, error)

// PagedFunc fetches one page for q and the total number of matches.
type PagedFunc[T any] func(ctx context.Context, q table.Query) ([]T, int, error)

// Option configures a Screen.
type Option func(*options)

type options struct {
	logger *zap.Logger
	exec   *mutation.Executor
}

// WithLogger sets the screen's logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithExecutor sets the executor used by Mutate.
func WithExecutor(e *mutation.Executor) Option { return func(o *options) { o.exec = e } }

// Screen is the single owner of one table's state.
type Screen[T any] struct {
	name   string
	mode   Mode
	schema *table.Schema[T]
	ctrl   *table.Controller
	whole  WholeFunc[T]
	paged  PagedFunc[T]
	exec   *mutation.Executor
	logger *zap.Logger
	seq    table.Sequencer

	mu         sync.Mutex
	collection []T
	loaded     bool
	view       table.View[T]
}

func newScreen[T any](name string, mode Mode, schema *table.Schema[T], pageSize int, opts []Option) *Screen[T] {
	o := options{logger: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.exec == nil {
		o.exec = mutation.NewExecutor(mutation.DefaultPolicy(), mutation.WithLogger(o.logger))
	}
	return &Screen[T]{
		name:   name,
		mode:   mode,
		schema: schema,
		ctrl:   table.NewController(pageSize),
		exec:   o.exec,
		logger: o.logger.Named("screen").With(zap.String("table", name)),
	}
}

// NewLocal returns a client-mode screen over a whole collection.
func NewLocal[T any](name string, schema *table.Schema[T], pageSize int, fetch WholeFunc[T], opts ...Option) *Screen[T] {
	s := newScreen(name, ModeClient, schema, pageSize, opts)
	s.whole = fetch
	return s
}

// NewRemote returns a server-mode screen.
func NewRemote[T any](name string, schema *table.Schema[T], pageSize int, fetch PagedFunc[T], opts ...Option) *Screen[T] {
	s := newScreen(name, ModeServer, schema, pageSize, opts)
	s.paged = fetch
	return s
}

func (s *Screen[T]) Name() string { return s.name }
func (s *Screen[T]) Mode() Mode { return s.mode }
func (s *Screen[T]) Schema() *table.Schema[T] { return s.schema }
func (s *Screen[T]) Query() table.Query { return s.ctrl.Query() }
func (s *Screen[T]) Executor() *mutation.Executor { return s.exec }

// Current returns the last derived view without fetching.
func (s *Screen[T]) Current() table.View[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Descriptors returns the filter descriptors with dynamic options drawn from
// the loaded collection. In server mode only one page is ever held, so
// dynamic descriptors come back with no options rather than a partial list.
func (s *Screen[T]) Descriptors() []table.Descriptor {
	if s.mode == ModeServer {
		return s.schema.Descriptors(nil)
	}
	s.mu.Lock()
	items := s.collection
	s.mu.Unlock()
	return s.schema.Descriptors(items)
}

// --- Query changes. Each one re-derives the view. ---

func (s *Screen[T]) SetPage(ctx context.Context, n int) (table.View[T], error) {
	s.ctrl.SetPage(n)
	return s.derive(ctx)
}

func (s *Screen[T]) SetPageSize(ctx context.Context, n int) (table.View[T], error) {
	s.ctrl.SetPageSize(n)
	return s.derive(ctx)
}

func (s *Screen[T]) SetSearch(ctx context.Context, text string) (table.View[T], error) {
	s.ctrl.SetSearch(text)
	return s.derive(ctx)
}

// SetFilters replaces the filters. Keys the schema does not describe are
// rejected and leave the query unchanged.
func (s *Screen[T]) SetFilters(ctx context.Context, f table.Filters) (table.View[T], error) {
	if err := s.schema.Validate(table.NewQuery(1).WithFilters(f)); err != nil {
		return table.View[T]{}, err
	}
	s.ctrl.SetFilters(f)
	return s.derive(ctx)
}

// SetSort sorts by key in dir. An unknown key is rejected.
func (s *Screen[T]) SetSort(ctx context.Context, key string, dir table.Direction) (table.View[T], error) {
	if err := s.schema.Validate(table.NewQuery(1).WithSort(key, dir)); err != nil {
		return table.View[T]{}, err
	}
	s.ctrl.SetSort(key, dir)
	return s.derive(ctx)
}

// SelectSort applies the header-click toggle for key.
func (s *Screen[T]) SelectSort(ctx context.Context, key string) (table.View[T], error) {
	if err := s.schema.Validate(table.NewQuery(1).WithSort(key, table.Ascending)); err != nil {
		return table.View[T]{}, err
	}
	s.ctrl.SelectSort(key)
	return s.derive(ctx)
}

// Apply replaces the whole query and derives once. It is how a query
// assembled elsewhere is installed without one fetch per field.
func (s *Screen[T]) Apply(ctx context.Context, q table.Query) (table.View[T], error) {
	if err := s.schema.Validate(q); err != nil {
		return table.View[T]{}, err
	}
	s.ctrl.Replace(q)
	return s.derive(ctx)
}

// View derives the view for the current query, fetching the collection on
// first use in client mode and on every call in server mode.
func (s *Screen[T]) View(ctx context.Context) (table.View[T], error) {
	return s.derive(ctx)
}

// Refresh re-fetches the base collection and re-derives the view.
func (s *Screen[T]) Refresh(ctx context.Context) (table.View[T], error) {
	if s.mode == ModeServer {
		return s.fetchPage(ctx)
	}
	if err := s.reload(ctx); err != nil {
		return table.View[T]{}, err
	}
	return s.deriveLocal(), nil
}

func (s *Screen[T]) derive(ctx context.Context) (table.View[T], error) {
	if s.mode == ModeServer {
		return s.fetchPage(ctx)
	}
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	if !loaded {
		if err := s.reload(ctx); err != nil {
			return table.View[T]{}, err
		}
	}
	return s.deriveLocal(), nil
}

// reload replaces the collection wholesale, unless a newer fetch has been
// issued in the meantime.
func (s *Screen[T]) reload(ctx context.Context) error {
	ticket := s.seq.Next()
	items, err := s.whole(ctx)
	if !s.seq.Current(ticket) {
		s.logger.Debug("discarding stale collection", zap.Uint64("ticket", uint64(ticket)))
		return ErrStale
	}
	if err != nil {
		return fmt.Errorf("fetching %s: %w", s.name, err)
	}
	s.mu.Lock()
	s.collection = items
	s.loaded = true
	s.mu.Unlock()
	s.logger.Debug("collection loaded", zap.Int("items", len(items)))
	return nil
}

func (s *Screen[T]) deriveLocal() table.View[T] {
	q := s.ctrl.Query()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = table.Derive(s.schema, s.collection, q)
	return s.view
}

func (s *Screen[T]) fetchPage(ctx context.Context) (table.View[T], error) {
	q := s.ctrl.Query()
	ticket := s.seq.Next()
	items, total, err := s.paged(ctx, q)
	if !s.seq.Current(ticket) {
		s.logger.Debug("discarding stale page", zap.Uint64("ticket", uint64(ticket)), zap.Int("page", q.Page))
		return table.View[T]{}, ErrStale
	}
	if err != nil {
		return table.View[T]{}, fmt.Errorf("fetching %s: %w", s.name, err)
	}
	v := table.Served(items, total, q)
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
	return v, nil
}

// All returns every record matching the current query, sorted, across all
// pages.
func (s *Screen[T]) All(ctx context.Context) ([]T, error) {
	q := s.ctrl.Query()
	if s.mode == ModeClient {
		if _, err := s.derive(ctx); err != nil {
			return nil, err
		}
		s.mu.Lock()
		items := s.collection
		s.mu.Unlock()
		return s.schema.Sort(s.schema.Filter(items, q), q.SortKey, q.SortDir), nil
	}

	var out []T
	for page := 1; ; page++ {
		items, total, err := s.paged(ctx, q.WithPage(page))
		if err != nil {
			return nil, fmt.Errorf("fetching %s page %d: %w", s.name, page, err)
		}
		out = append(out, items...)
		if len(items) == 0 || len(out) >= total || page >= table.TotalPages(total, q.PageSize) {
			return out, nil
		}
	}
}

// Mutate runs req through the executor. On success the base collection is
// re-fetched and replaced.
func (s *Screen[T]) Mutate(ctx context.Context, req mutation.Request, notify func(mutation.Event)) (*mutation.Mutation, mutation.Result) {
	m := s.exec.New(req, notify)
	return m, s.settle(ctx, m, m.Run(ctx))
}

// Retry manually retries a mutation that failed terminally.
func (s *Screen[T]) Retry(ctx context.Context, m *mutation.Mutation) mutation.Result {
	return s.settle(ctx, m, m.Retry(ctx))
}

func (s *Screen[T]) settle(ctx context.Context, m *mutation.Mutation, res mutation.Result) mutation.Result {
	if !res.OK() {
		return res
	}
	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		s.logger.Warn("refresh after mutation failed", zap.String("mutation", m.ID()), zap.Error(err))
	}
	return res
}
