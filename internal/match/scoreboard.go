package match

import (
	"time"

	"github.com/cpduel/cpduel/internal/scoring"
	"go.uber.org/zap"
)

// Board holds the running score state of one match: cumulative points per
// player, the current first-solve record per problem, and the last observed
// verdict per problem and player (display overlay only).
//
// Board is not safe for concurrent use; the engine serializes all access.
type Board struct {
	cfg   *Config
	hooks Hooks

	scores   map[string]int
	solves   map[string]SolveRecord
	statuses map[string]map[string]Verdict
}

func NewBoard(cfg *Config, hooks Hooks) *Board {
	scores := make(map[string]int, len(cfg.Players))
	for _, p := range cfg.Players {
		scores[p.Handle] = 0
	}
	return &Board{
		cfg:      cfg,
		hooks:    hooks,
		scores:   scores,
		solves:   make(map[string]SolveRecord),
		statuses: make(map[string]map[string]Verdict),
	}
}

// Apply consumes one delivered submission. Non-accepted verdicts only touch
// the status overlay. An accepted verdict either creates the problem's
// solve record or replaces it when the new submission precedes the current
// winner in true solve order; on replacement the old winner's points are
// debited and the new winner's credited in the same call, so no partial
// state is ever observable between them.
func (b *Board) Apply(sub Submission) {
	problemID := sub.ProblemID()
	problemIndex := b.cfg.ProblemIndex(problemID)
	if problemIndex < 0 {
		// Not a match problem; the poller only filters by time window.
		return
	}

	b.setStatus(problemID, sub.Handle, sub.Verdict)

	if sub.Verdict != VerdictAccepted {
		return
	}

	problem := b.cfg.Problems[problemIndex]
	solvedAt := time.UnixMilli(sub.TimeMillis())
	candidate := SolveRecord{
		ProblemID:       problemID,
		Handle:          sub.Handle,
		SubmissionID:    sub.ID,
		SolveTimeMillis: sub.TimeMillis(),
		Points:          scoring.Award(problem.Rating, b.cfg.MultiplierAt(problemIndex, solvedAt)),
	}

	current, solved := b.solves[problemID]
	if solved && !candidate.Beats(current) {
		return
	}

	if solved {
		// Retroactive correction: the earlier true solve arrived late.
		b.scores[current.Handle] -= current.Points
		zap.S().Infof("match %s: problem %s winner revised %s -> %s",
			b.cfg.MatchID, problemID, current.Handle, candidate.Handle)
	}
	b.solves[problemID] = candidate
	b.scores[candidate.Handle] += candidate.Points

	if solved && b.hooks.OnScoreChange != nil {
		b.hooks.OnScoreChange(current.Handle, b.scores[current.Handle])
	}
	if b.hooks.OnScoreChange != nil {
		b.hooks.OnScoreChange(candidate.Handle, b.scores[candidate.Handle])
	}
	if b.hooks.OnSolve != nil {
		b.hooks.OnSolve(problemID, candidate.Handle)
	}
}

func (b *Board) setStatus(problemID, handle string, verdict Verdict) {
	byHandle, ok := b.statuses[problemID]
	if !ok {
		byHandle = make(map[string]Verdict)
		b.statuses[problemID] = byHandle
	}
	if byHandle[handle] == verdict {
		return
	}
	byHandle[handle] = verdict
	if b.hooks.OnStatusChange != nil {
		b.hooks.OnStatusChange(problemID, handle, verdict)
	}
}

// Scores returns a copy of the cumulative points per handle.
func (b *Board) Scores() map[string]int {
	scores := make(map[string]int, len(b.scores))
	for handle, points := range b.scores {
		scores[handle] = points
	}
	return scores
}

// Solves returns a copy of the current solve records keyed by problem ID.
func (b *Board) Solves() map[string]SolveRecord {
	solves := make(map[string]SolveRecord, len(b.solves))
	for id, rec := range b.solves {
		solves[id] = rec
	}
	return solves
}

// Statuses returns a copy of the verdict overlay.
func (b *Board) Statuses() map[string]map[string]Verdict {
	statuses := make(map[string]map[string]Verdict, len(b.statuses))
	for problemID, byHandle := range b.statuses {
		inner := make(map[string]Verdict, len(byHandle))
		for handle, verdict := range byHandle {
			inner[handle] = verdict
		}
		statuses[problemID] = inner
	}
	return statuses
}
