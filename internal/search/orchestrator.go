package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/evyataryagoni/itemlocator/internal/geo"
	"github.com/evyataryagoni/itemlocator/internal/logger"
	"github.com/evyataryagoni/itemlocator/internal/models"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMinQueryLength = 2
)

// ErrClosed is returned by Orchestrator methods after Close
var ErrClosed = errors.New("search session closed")

// Phase is where an Orchestrator is in its search cycle
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDebouncing Phase = "debouncing"
	PhaseSearching  Phase = "searching"
	PhaseResults    Phase = "results"
	PhaseErrored    Phase = "errored"
)

// State is what a presentation layer renders
type State struct {
	Phase       Phase               `json:"phase"`
	Query       string              `json:"query"`
	Results     []models.ResultItem `json:"results"`
	IsLoading   bool                `json:"isLoading"`
	Error       string              `json:"error,omitempty"`
	HasSearched bool                `json:"hasSearched"`
}

func idleState(query string) State {
	return State{Phase: PhaseIdle, Query: query, Results: []models.ResultItem{}}
}

// Searcher is the part of Pipeline an Orchestrator drives
type Searcher interface {
	Lookup(query string, origin *geo.Coordinate) ([]models.ResultItem, bool)
	Fetch(ctx context.Context, query string, origin *geo.Coordinate) ([]models.ResultItem, error)
	Invalidate(query string)
}

// OrchestratorOptions configures an Orchestrator. Zero values fall back to
// the defaults.
type OrchestratorOptions struct {
	Debounce       time.Duration
	MinQueryLength int
	Clock          clockwork.Clock

	// OnChange receives every state the orchestrator moves through, in order.
	// It is called outside the orchestrator's lock but must not call back into
	// the same orchestrator synchronously.
	OnChange func(State)

	Logger *logger.Logger
}

// Orchestrator is one user's live search: it debounces keystrokes, runs at
// most one authoritative search at a time and drops results of superseded
// searches. All methods are safe for concurrent use.
type Orchestrator struct {
	searcher Searcher
	debounce time.Duration
	minLen   int
	clock    clockwork.Clock
	onChange func(State)
	logger   *logger.Logger

	mu     sync.Mutex
	state  State
	origin *geo.Coordinate
	gen    uint64 // bumped by every new search attempt, clear and close
	timer  clockwork.Timer
	cancel context.CancelFunc
	closed bool

	// version orders snapshots; delivered is the last one handed to onChange
	version   uint64
	notifyMu  sync.Mutex
	delivered uint64
}

// NewOrchestrator creates an idle orchestrator
func NewOrchestrator(searcher Searcher, opts OrchestratorOptions) *Orchestrator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Orchestrator{
		searcher: searcher,
		debounce: opts.Debounce,
		minLen:   opts.MinQueryLength,
		clock:    opts.Clock,
		onChange: opts.OnChange,
		logger:   opts.Logger.WithComponent("orchestrator"),
		state:    idleState(""),
	}
}

// State returns a snapshot of the current state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state.clone()
}

// UpdateQuery handles a keystroke. An empty query resets to idle at once; a
// query shorter than the minimum clears results without searching; anything
// else (re)arms the debounce timer.
func (o *Orchestrator) UpdateQuery(text string) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}

	query := strings.TrimSpace(text)
	o.supersedeLocked()

	switch {
	case query == "":
		o.state = idleState("")

	case utf8.RuneCountInString(query) < o.minLen:
		o.state = idleState(query)

	default:
		gen := o.gen
		o.state.Phase = PhaseDebouncing
		o.state.Query = query
		o.state.IsLoading = false
		o.state.Error = ""
		o.timer = o.clock.AfterFunc(o.debounce, func() { o.fire(gen) })
	}

	snap, version := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap, version)
	return nil
}

// ClearSearch resets to idle and abandons any pending or running search.
// The result cache is left alone.
func (o *Orchestrator) ClearSearch() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}

	o.supersedeLocked()
	o.state = idleState("")

	snap, version := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap, version)
	return nil
}

// RefreshSearch drops the cached results for the current query and searches
// again immediately. It does nothing when no searchable query is current.
func (o *Orchestrator) RefreshSearch() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}

	query := o.state.Query
	if utf8.RuneCountInString(query) < o.minLen {
		o.mu.Unlock()
		return nil
	}

	o.supersedeLocked()
	o.searcher.Invalidate(query)
	o.logger.Debug().Str("query", query).Msg("Refreshing search")
	o.startLocked()

	snap, version := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap, version)
	return nil
}

// SetOrigin sets the user's location for distance annotation and
// re-annotates any results already shown. nil removes distances.
func (o *Orchestrator) SetOrigin(origin *geo.Coordinate) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}

	if origin != nil {
		c := *origin
		origin = &c
	}
	o.origin = origin

	if len(o.state.Results) == 0 {
		o.mu.Unlock()
		return nil
	}

	o.state.Results, _ = Annotate(o.state.Results, origin)
	snap, version := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap, version)
	return nil
}

// Close stops the debounce timer and cancels any running search.
// Later calls return ErrClosed; Close itself is idempotent.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.supersedeLocked()
	return nil
}

// supersedeLocked invalidates every pending timer and in-flight search
func (o *Orchestrator) supersedeLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
}

// fire runs when the debounce timer for generation gen expires
func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	if o.closed || gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.startLocked()

	snap, version := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap, version)
}

// startLocked serves the current query from the cache or starts a fetch for it
func (o *Orchestrator) startLocked() {
	query := o.state.Query
	origin := o.origin

	if results, ok := o.searcher.Lookup(query, origin); ok {
		o.state.Phase = PhaseResults
		o.state.Results = results
		o.state.IsLoading = false
		o.state.Error = ""
		o.state.HasSearched = true
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	gen := o.gen

	o.state.Phase = PhaseSearching
	o.state.IsLoading = true
	o.state.Error = ""

	go o.run(ctx, gen, query, origin)
}

// run fetches in the background and applies the outcome only if its
// generation is still current
func (o *Orchestrator) run(ctx context.Context, gen uint64, query string, origin *geo.Coordinate) {
	results, err := o.searcher.Fetch(ctx, query, origin)

	o.mu.Lock()
	if o.closed || gen != o.gen || ctx.Err() != nil {
		o.mu.Unlock()
		o.logger.Debug().Str("query", query).Msg("Discarding superseded search")
		return
	}
	o.cancel = nil

	// ctx is live here, so even a deadline error came from the executor itself
	if err != nil {
		o.state.Phase = PhaseErrored
		o.state.Results = []models.ResultItem{}
		o.state.Error = err.Error()
	} else {
		o.state.Phase = PhaseResults
		o.state.Results = results
		o.state.Error = ""
	}
	o.state.IsLoading = false
	o.state.HasSearched = true

	snap, version := o.snapshotLocked()
	o.mu.Unlock()

	o.publish(snap, version)
}

func (o *Orchestrator) snapshotLocked() (State, uint64) {
	o.version++
	return o.state.clone(), o.version
}

// publish hands snap to OnChange unless a newer snapshot already went out
func (o *Orchestrator) publish(snap State, version uint64) {
	if o.onChange == nil {
		return
	}

	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	if version <= o.delivered {
		return
	}
	o.delivered = version
	o.onChange(snap)
}

func (s State) clone() State {
	results := make([]models.ResultItem, len(s.Results))
	copy(results, s.Results)
	s.Results = results
	return s
}
