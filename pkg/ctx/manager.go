package ctx

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ctxwin/ctxwin/pkg/events"
	"github.com/ctxwin/ctxwin/pkg/logging"
)

// BuildRequest carries everything a single context build needs. Candidates
// come precomputed from the file, retrieval and session collaborators.
type BuildRequest struct {
	SessionID string

	// Model selects the context window when MaxTokens is unset.
	Model string

	// MaxTokens overrides the model's context window. 0 defers to the
	// model registry.
	MaxTokens int

	// ReservedTokens overrides the strategy's reserve. 0 defers to the
	// active strategy, then to the registry default.
	ReservedTokens int

	Candidates []CandidateItem

	// RecentlyEdited and GraphDistance are optional relevance signals from
	// the editor collaborator.
	RecentlyEdited map[string]time.Time
	GraphDistance  map[string]int
}

// Manager is the engine façade. It owns no candidate content and persists
// nothing across calls except the token-count cache; every build re-runs
// the pure scoring/budgeting/selection pipeline.
//
// Builds for different sessions may run concurrently. A session-change
// event, or a newer build for the same session, cancels the in-flight
// build and its result is discarded.
type Manager struct {
	cache   *TokenCache
	counts  *CountService
	scorer  *Scorer
	planner *Planner
	store   *Store
	bus     events.EventBus
	logger  logging.Logger

	mu         sync.Mutex
	pins       map[string]struct{}
	strategy   Strategy
	lastBudget TokenBudget
	builds     map[string]buildHandle
}

type buildHandle struct {
	id     string
	cancel context.CancelFunc
}

type managerOptions struct {
	logger        logging.Logger
	counter       TokenCounter
	store         *Store
	cacheCapacity int
	workers       int
	countTimeout  time.Duration
	window        time.Duration
	clock         func() time.Time
}

// Option configures a Manager.
type Option func(*managerOptions)

// WithLogger sets the logger for all engine components.
func WithLogger(logger logging.Logger) Option {
	return func(o *managerOptions) { o.logger = logger }
}

// WithCounter replaces the heuristic token counter, e.g. with a
// TiktokenCounter for exact counts.
func WithCounter(counter TokenCounter) Option {
	return func(o *managerOptions) { o.counter = counter }
}

// WithStore replaces the default strategy store.
func WithStore(store *Store) Option {
	return func(o *managerOptions) { o.store = store }
}

// WithCacheCapacity sets the token-count cache size.
func WithCacheCapacity(capacity int) Option {
	return func(o *managerOptions) { o.cacheCapacity = capacity }
}

// WithWorkers sets the count pool size.
func WithWorkers(workers int) Option {
	return func(o *managerOptions) { o.workers = workers }
}

// WithCountTimeout bounds a single token count before the estimate is
// substituted.
func WithCountTimeout(timeout time.Duration) Option {
	return func(o *managerOptions) { o.countTimeout = timeout }
}

// WithRecencyWindow sets the relevance decay window.
func WithRecencyWindow(window time.Duration) Option {
	return func(o *managerOptions) { o.window = window }
}

// WithClock injects the clock, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(o *managerOptions) { o.clock = clock }
}

// NewManager wires the engine together. bus may be nil when no collaborator
// events are needed; with a bus, the manager subscribes to file.changed for
// cache invalidation and session.changed for build cancellation.
func NewManager(bus events.EventBus, opts ...Option) (*Manager, error) {
	o := &managerOptions{
		counter:       HeuristicCounter{},
		cacheCapacity: DefaultCacheCapacity,
		countTimeout:  DefaultCountTimeout,
		window:        DefaultRecencyWindow,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewDefaultLogger()
	}
	if o.store == nil {
		o.store = NewStore()
	}

	cache := NewTokenCache(o.counter, o.cacheCapacity)
	cache.clock = o.clock

	counts, err := NewCountService(cache, o.workers, o.countTimeout, o.logger)
	if err != nil {
		return nil, err
	}

	scorer := NewScorer(o.window, o.clock)

	m := &Manager{
		cache:   cache,
		counts:  counts,
		scorer:  scorer,
		planner: NewPlanner(counts, o.counter, scorer, o.logger),
		store:   o.store,
		bus:     bus,
		logger:  logging.NewComponentLogger(o.logger, "ctx"),
		pins:    make(map[string]struct{}),
		builds:  make(map[string]buildHandle),
	}

	if strategy, ok := o.store.Get("balanced"); ok {
		m.strategy = strategy
	} else if names := o.store.Names(); len(names) > 0 {
		m.strategy, _ = o.store.Get(names[0])
	}

	if bus != nil {
		bus.Subscribe(events.TopicFileChanged, m.handleFileChanged)
		bus.Subscribe(events.TopicSessionChanged, m.handleSessionChanged)
	}

	return m, nil
}

// BuildContext assembles a context for one model invocation. It returns a
// *ConfigurationError and no result for invalid budget configuration, the
// context's error when the build is cancelled mid-flight, and may return a
// valid result together with a *CapacityExceededError when a pinned item
// cannot fit even the whole available budget.
func (m *Manager) BuildContext(parent context.Context, req BuildRequest) (*SelectionResult, error) {
	buildID := uuid.NewString()

	m.mu.Lock()
	strategy := m.strategy
	pins := make(map[string]struct{}, len(m.pins))
	for id := range m.pins {
		pins[id] = struct{}{}
	}
	m.mu.Unlock()

	total := req.MaxTokens
	if total <= 0 {
		total = ContextWindowFor(req.Model)
	}
	reserved := req.ReservedTokens
	if reserved <= 0 {
		reserved = strategy.ReservedTokens
	}
	if reserved <= 0 {
		reserved = DefaultReservedTokens(total)
	}

	budget, err := Partition(total, reserved, strategy)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	m.registerBuild(req.SessionID, buildID, cancel)
	defer m.unregisterBuild(req.SessionID, buildID)

	candidates := make([]CandidateItem, len(req.Candidates))
	copy(candidates, req.Candidates)
	for i := range candidates {
		if _, ok := pins[candidates[i].ID]; ok {
			candidates[i].Pinned = true
		}
	}

	m.logger.Debug("building context",
		"build_id", buildID,
		"session", req.SessionID,
		"strategy", strategy.Name,
		"candidates", len(candidates),
		"total", total,
		"reserved", reserved)

	result, planErr := m.planner.Plan(ctx, candidates, budget, ScoreContext{
		Strategy:       strategy,
		RecentlyEdited: req.RecentlyEdited,
		GraphDistance:  req.GraphDistance,
	})
	if result == nil {
		return nil, planErr
	}

	m.mu.Lock()
	m.lastBudget = result.Budget.clone()
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(events.TopicContextBuilt, events.ContextBuiltEvent{
			SessionID: req.SessionID,
			BuildID:   buildID,
			TotalUsed: result.TotalUsed,
			Included:  len(result.Included),
			Omitted:   len(result.Omitted),
		})
	}
	m.logger.Info("context built",
		"build_id", buildID,
		"session", req.SessionID,
		"total_used", result.TotalUsed,
		"included", len(result.Included),
		"omitted", len(result.Omitted))

	return result, planErr
}

// PinFile marks an identity as mandatory-include for future builds.
func (m *Manager) PinFile(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[identity] = struct{}{}
}

// UnpinFile removes a pin.
func (m *Manager) UnpinFile(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pins, identity)
}

// PinnedFiles returns the pinned identities, sorted.
func (m *Manager) PinnedFiles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	pinned := make([]string, 0, len(m.pins))
	for id := range m.pins {
		pinned = append(pinned, id)
	}
	sort.Strings(pinned)
	return pinned
}

// SetStrategy switches the active strategy by name.
func (m *Manager) SetStrategy(name string) error {
	strategy, ok := m.store.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategy = strategy
	return nil
}

// Strategy returns the active strategy.
func (m *Manager) Strategy() Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategy
}

// Strategies exposes the strategy store.
func (m *Manager) Strategies() *Store {
	return m.store
}

// BudgetSnapshot returns the partition of the most recent build, or a
// partition of the fallback window under the active strategy when nothing
// has been built yet.
func (m *Manager) BudgetSnapshot() TokenBudget {
	m.mu.Lock()
	last := m.lastBudget
	strategy := m.strategy
	m.mu.Unlock()

	if last.Total > 0 {
		return last.clone()
	}

	reserved := strategy.ReservedTokens
	if reserved <= 0 {
		reserved = DefaultReservedTokens(FallbackContextWindow)
	}
	budget, err := Partition(FallbackContextWindow, reserved, strategy)
	if err != nil {
		return TokenBudget{}
	}
	return budget
}

// CacheStats returns token-cache counters.
func (m *Manager) CacheStats() CacheStats {
	return m.cache.Stats()
}

// InvalidateFile drops the cached token count for an identity. Also invoked
// via file.changed events when a bus is attached.
func (m *Manager) InvalidateFile(identity string) {
	m.cache.Invalidate(identity)
}

// CancelSession cancels any in-flight build for the session. Also invoked
// via session.changed events when a bus is attached.
func (m *Manager) CancelSession(sessionID string) {
	m.mu.Lock()
	handle, ok := m.builds[sessionID]
	if ok {
		delete(m.builds, sessionID)
	}
	m.mu.Unlock()
	if ok {
		handle.cancel()
	}
}

// Close releases the count pool and cancels in-flight builds.
func (m *Manager) Close() {
	m.mu.Lock()
	handles := make([]buildHandle, 0, len(m.builds))
	for _, handle := range m.builds {
		handles = append(handles, handle)
	}
	m.builds = make(map[string]buildHandle)
	m.mu.Unlock()

	for _, handle := range handles {
		handle.cancel()
	}
	m.counts.Close()
}

func (m *Manager) handleFileChanged(event any) {
	if e, ok := event.(events.FileChangedEvent); ok {
		m.logger.Debug("invalidating token count", "identity", e.Identity)
		m.cache.Invalidate(e.Identity)
	}
}

func (m *Manager) handleSessionChanged(event any) {
	if e, ok := event.(events.SessionChangedEvent); ok {
		m.CancelSession(e.SessionID)
	}
}

// registerBuild tracks the build's cancel func. A newer build for the same
// session supersedes the old one, which is cancelled.
func (m *Manager) registerBuild(sessionID, buildID string, cancel context.CancelFunc) {
	m.mu.Lock()
	previous, hadPrevious := m.builds[sessionID]
	m.builds[sessionID] = buildHandle{id: buildID, cancel: cancel}
	m.mu.Unlock()
	if hadPrevious {
		previous.cancel()
	}
}

func (m *Manager) unregisterBuild(sessionID, buildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if handle, ok := m.builds[sessionID]; ok && handle.id == buildID {
		delete(m.builds, sessionID)
	}
}
