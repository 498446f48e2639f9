package match

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// SubmissionSource is the judge query collaborator: given a handle it
// returns the player's full submission history. Calls may be slow or fail;
// the poller treats failure as "no new data this cycle".
type SubmissionSource interface {
	Submissions(ctx context.Context, handle string) ([]Submission, error)
}

// PollerOptions carries the poller's timer cadence. Zero values fall back
// to the defaults the judge service is known to tolerate.
type PollerOptions struct {
	Interval     time.Duration // full cycle interval
	PlayerPause  time.Duration // pause between players within a cycle
	OutageCycles int           // consecutive all-failed cycles before warning
}

func (o *PollerOptions) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.PlayerPause <= 0 {
		o.PlayerPause = 500 * time.Millisecond
	}
	if o.OutageCycles <= 0 {
		o.OutageCycles = 5
	}
}

// Poller discovers newly-observed submissions for a fixed set of handles
// and delivers each exactly once, per handle in non-decreasing submission
// ID order. Handles are polled sequentially within a cycle to respect the
// judge's rate limit; one failing handle never blocks the others.
type Poller struct {
	source      SubmissionSource
	handles     []string
	startMillis int64
	deliver     func(Submission)
	onOutage    func(cycles int)
	opts        PollerOptions

	// lastSeen is the per-handle watermark: the highest submission ID
	// already delivered. Only the poller goroutine touches it.
	lastSeen map[string]int64

	cancel  context.CancelFunc
	stopped chan struct{}

	failedCycles int
}

func NewPoller(source SubmissionSource, handles []string, startTime time.Time, deliver func(Submission), onOutage func(int), opts PollerOptions) *Poller {
	opts.applyDefaults()
	lastSeen := make(map[string]int64, len(handles))
	for _, h := range handles {
		lastSeen[h] = -1
	}
	return &Poller{
		source:      source,
		handles:     handles,
		startMillis: startTime.UnixMilli(),
		deliver:     deliver,
		onOutage:    onOutage,
		opts:        opts,
		lastSeen:    lastSeen,
	}
}

// Start launches the poll loop: one immediate cycle, then one per interval.
// It is a no-op if the poller is already running.
func (p *Poller) Start(parent context.Context) {
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.stopped = make(chan struct{})

	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()

		p.cycle(ctx)
		for {
			select {
			case <-ticker.C:
				p.cycle(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels polling and waits for the loop to drain. Safe to call at any
// point, including with a query in flight: once Stop returns, no further
// submissions will be delivered.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.stopped
}

func (p *Poller) cycle(ctx context.Context) {
	anySucceeded := false
	for i, handle := range p.handles {
		if ctx.Err() != nil {
			return
		}
		if err := p.pollHandle(ctx, handle); err != nil {
			// Skip this handle for the cycle; the watermark is untouched
			// so the next cycle retries from the same point.
			zap.S().Warnf("poll failed for %s: %v", handle, err)
		} else {
			anySucceeded = true
		}

		if i < len(p.handles)-1 {
			select {
			case <-time.After(p.opts.PlayerPause):
			case <-ctx.Done():
				return
			}
		}
	}

	if anySucceeded {
		p.failedCycles = 0
		return
	}
	p.failedCycles++
	if p.failedCycles == p.opts.OutageCycles && p.onOutage != nil {
		p.onOutage(p.failedCycles)
	}
}

func (p *Poller) pollHandle(ctx context.Context, handle string) error {
	history, err := p.source.Submissions(ctx, handle)
	if err != nil {
		return err
	}

	fresh := history[:0]
	for _, sub := range history {
		if sub.TimeMillis() >= p.startMillis && sub.ID > p.lastSeen[handle] {
			fresh = append(fresh, sub)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })

	for _, sub := range fresh {
		// A cancelled poller must not deliver, even if the query that
		// produced these entries was already in flight.
		if ctx.Err() != nil {
			return nil
		}
		sub.Handle = handle
		p.deliver(sub)
		p.lastSeen[handle] = sub.ID
	}
	return nil
}
