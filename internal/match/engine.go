package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hooks are the observable events the host subscribes to. They are invoked
// synchronously on the engine's event goroutine with all data passed by
// value; implementations must not call back into the engine.
type Hooks struct {
	OnPhaseChange  func(phase Phase)
	OnScoreChange  func(handle string, points int)
	OnSolve        func(problemID, handle string)
	OnStatusChange func(problemID, handle string, verdict Verdict)
	OnJudgeOutage  func(cycles int)
	OnMatchEnded   func(snapshot Snapshot)
}

// Options tunes the engine's timers. The zero value is production cadence.
type Options struct {
	TickInterval time.Duration
	Poller       PollerOptions

	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// PlayerResult is one row of a frozen results snapshot.
type PlayerResult struct {
	Rank   int    `json:"rank"`
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
	Points int    `json:"points"`
}

// Snapshot is the immutable final state of an ended match.
type Snapshot struct {
	MatchID   string         `json:"match_id"`
	EndedAt   time.Time      `json:"ended_at"`
	Standings []PlayerResult `json:"standings"`
	Solves    []SolveRecord  `json:"solves"`
}

// Engine owns one match from scheduling through its terminal state. It runs
// a wall-clock tick loop that drives phase transitions, starts and stops
// the submission poller, and applies delivered submissions to the board.
// All state mutation happens under one lock, so observers never see a
// partially applied update.
type Engine struct {
	mu    sync.RWMutex
	cfg   Config
	board *Board
	hooks Hooks
	opts  Options

	source SubmissionSource
	poller *Poller

	phase     Phase
	abandoned bool
	snapshot  *Snapshot

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine validates the config and prepares an engine. A config that
// fails validation never reaches the Live phase.
func NewEngine(cfg Config, source SubmissionSource, hooks Hooks, opts Options) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	e := &Engine{
		cfg:    cfg,
		hooks:  hooks,
		opts:   opts,
		source: source,
		phase:  cfg.PhaseAt(opts.Now()),
		done:   make(chan struct{}),
	}
	e.board = NewBoard(&e.cfg, hooks)
	e.poller = NewPoller(source, cfg.Handles(), cfg.StartTime, e.applySubmission, hooks.OnJudgeOutage, opts.Poller)
	return e, nil
}

// Start begins lifecycle tracking. The initial phase is evaluated
// immediately, so a match whose start time has already passed goes Live
// without waiting for the first tick.
func (e *Engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	defer e.poller.Stop()

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	if e.tick(ctx) {
		return
	}
	for {
		select {
		case <-ticker.C:
			if e.tick(ctx) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// tick evaluates the wall clock and performs any due transition. It
// returns true once the match has reached its terminal state.
func (e *Engine) tick(ctx context.Context) bool {
	now := e.opts.Now()

	e.mu.Lock()
	if e.abandoned {
		e.mu.Unlock()
		return true
	}
	prev := e.phase
	next := e.cfg.PhaseAt(now)
	e.phase = next
	if next == PhaseEnded && e.snapshot == nil {
		e.freezeLocked(now)
	}
	e.mu.Unlock()

	if next != prev && e.hooks.OnPhaseChange != nil {
		e.hooks.OnPhaseChange(next)
	}

	switch next {
	case PhaseLive:
		if prev != PhaseLive {
			zap.S().Infof("match %s is live, starting poller", e.cfg.MatchID)
		}
		e.poller.Start(ctx)
	case PhaseEnded:
		e.poller.Stop()
		e.mu.RLock()
		snapshot := *e.snapshot
		e.mu.RUnlock()
		zap.S().Infof("match %s ended", e.cfg.MatchID)
		if e.hooks.OnMatchEnded != nil {
			e.hooks.OnMatchEnded(snapshot)
		}
		return true
	}
	return false
}

// freezeLocked builds the immutable results snapshot. Caller holds e.mu.
func (e *Engine) freezeLocked(endedAt time.Time) {
	scores := e.board.Scores()

	standings := make([]PlayerResult, len(e.cfg.Players))
	for i, p := range e.cfg.Players {
		standings[i] = PlayerResult{Handle: p.Handle, Rating: p.Rating, Points: scores[p.Handle]}
	}
	// Points descending; equal points keep config order.
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}

	solveMap := e.board.Solves()
	solves := make([]SolveRecord, 0, len(solveMap))
	for _, rec := range solveMap {
		solves = append(solves, rec)
	}
	sort.Slice(solves, func(i, j int) bool {
		return solves[i].SolveTimeMillis < solves[j].SolveTimeMillis
	})

	e.snapshot = &Snapshot{
		MatchID:   e.cfg.MatchID,
		EndedAt:   endedAt,
		Standings: standings,
		Solves:    solves,
	}
}

// applySubmission is the poller's delivery target.
func (e *Engine) applySubmission(sub Submission) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot != nil || e.abandoned {
		return
	}
	e.board.Apply(sub)
}

// Abandon stops all timers and polling without producing results. The
// in-memory state is discarded by the host dropping its reference.
func (e *Engine) Abandon() {
	e.mu.Lock()
	if e.abandoned || e.snapshot != nil {
		e.mu.Unlock()
		return
	}
	e.abandoned = true
	e.mu.Unlock()
	zap.S().Infof("match %s abandoned", e.cfg.MatchID)
	if e.cancel != nil {
		e.cancel()
		<-e.done
	}
}

// Done is closed when the engine's run loop has exited, either because the
// match ended or because it was abandoned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// FinalLap reports whether the final-lap multiplier window is open now.
func (e *Engine) FinalLap() bool {
	return e.cfg.FinalLapAt(e.opts.Now())
}

func (e *Engine) Abandoned() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.abandoned
}

func (e *Engine) Scores() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.Scores()
}

func (e *Engine) Solves() map[string]SolveRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.Solves()
}

func (e *Engine) Statuses() map[string]map[string]Verdict {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.Statuses()
}

// Results returns the frozen snapshot once the match has ended.
func (e *Engine) Results() (Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snapshot == nil {
		return Snapshot{}, false
	}
	return *e.snapshot, true
}
