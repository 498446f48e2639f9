package match

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the lifecycle state of a match. Transitions are driven purely by
// wall-clock comparison against the config's start and end times; Ended is
// terminal.
type Phase string

const (
	PhaseScheduled Phase = "Scheduled"
	PhaseLive      Phase = "Live"
	PhaseEnded     Phase = "Ended"
)

type Verdict string

const (
	VerdictAccepted    Verdict = "Accepted"
	VerdictWrongAnswer Verdict = "WrongAnswer"
	VerdictTimeLimit   Verdict = "TimeLimitExceeded"
	VerdictOther       Verdict = "Other"
)

// VerdictFromJudge maps the judge's wire verdict strings onto the engine's
// verdict set. Anything unrecognized (compile errors, skipped, in-queue)
// collapses to Other.
func VerdictFromJudge(raw string) Verdict {
	switch raw {
	case "OK":
		return VerdictAccepted
	case "WRONG_ANSWER":
		return VerdictWrongAnswer
	case "TIME_LIMIT_EXCEEDED":
		return VerdictTimeLimit
	default:
		return VerdictOther
	}
}

type Player struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
}

type Problem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
}

// ID returns the problem's identity within a match, "<contestId>-<index>".
func (p Problem) ID() string {
	return fmt.Sprintf("%d-%s", p.ContestID, p.Index)
}

// Submission is one delivered entry of a player's judge stream. IDs increase
// monotonically per player but are not comparable across players.
type Submission struct {
	ID                  int64
	Handle              string
	ContestID           int
	Index               string
	Verdict             Verdict
	CreationTimeSeconds int64
}

func (s Submission) ProblemID() string {
	return fmt.Sprintf("%d-%s", s.ContestID, s.Index)
}

// TimeMillis is the solve timestamp in milliseconds since epoch.
func (s Submission) TimeMillis() int64 {
	return s.CreationTimeSeconds * 1000
}

// SolveRecord marks the current legitimate first solve of a problem. It may
// be replaced if a later-observed submission precedes it in true solve
// order; Points always reflects the record's own timestamp.
type SolveRecord struct {
	ProblemID       string `json:"problem_id"`
	Handle          string `json:"handle"`
	SubmissionID    int64  `json:"submission_id"`
	SolveTimeMillis int64  `json:"solve_time_millis"`
	Points          int    `json:"points"`
}

// Beats reports whether r is the legitimate first solve when compared to
// other: earlier solve time wins, exact ties resolve to the smaller
// submission ID.
func (r SolveRecord) Beats(other SolveRecord) bool {
	if r.SolveTimeMillis != other.SolveTimeMillis {
		return r.SolveTimeMillis < other.SolveTimeMillis
	}
	return r.SubmissionID < other.SubmissionID
}

// ErrInvalidConfig marks configuration errors that prevent a match from
// ever entering the Live phase.
var ErrInvalidConfig = errors.New("invalid match config")

// Config is the immutable description of one match, created by the setup
// flow and owned by the engine from then on.
type Config struct {
	MatchID             string    `json:"matchId"`
	Players             []Player  `json:"players"`
	Problems            []Problem `json:"problems"`
	StartTime           time.Time `json:"startTime"`
	EndTime             time.Time `json:"endTime"`
	FinalLapEnabled     bool      `json:"finalLapEnabled"`
	MysteryProblemIndex int       `json:"mysteryProblemIndex"` // -1 means none
}

func (c *Config) Validate() error {
	if c.MatchID == "" {
		return fmt.Errorf("%w: match ID is empty", ErrInvalidConfig)
	}
	if len(c.Players) < 2 {
		return fmt.Errorf("%w: at least two players required", ErrInvalidConfig)
	}
	seenHandles := make(map[string]bool, len(c.Players))
	for _, p := range c.Players {
		if p.Handle == "" {
			return fmt.Errorf("%w: player with empty handle", ErrInvalidConfig)
		}
		if seenHandles[p.Handle] {
			return fmt.Errorf("%w: duplicate handle %q", ErrInvalidConfig, p.Handle)
		}
		seenHandles[p.Handle] = true
	}
	if len(c.Problems) == 0 {
		return fmt.Errorf("%w: no problems", ErrInvalidConfig)
	}
	seenProblems := make(map[string]bool, len(c.Problems))
	for _, p := range c.Problems {
		if p.ContestID <= 0 || p.Index == "" {
			return fmt.Errorf("%w: problem without identity", ErrInvalidConfig)
		}
		if seenProblems[p.ID()] {
			return fmt.Errorf("%w: duplicate problem %s", ErrInvalidConfig, p.ID())
		}
		seenProblems[p.ID()] = true
	}
	if c.StartTime.IsZero() || c.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end times required", ErrInvalidConfig)
	}
	if !c.EndTime.After(c.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidConfig)
	}
	if c.MysteryProblemIndex < -1 || c.MysteryProblemIndex >= len(c.Problems) {
		return fmt.Errorf("%w: mystery problem index %d out of range", ErrInvalidConfig, c.MysteryProblemIndex)
	}
	return nil
}

// FinalLapStart is the instant the last quarter of the match begins.
func (c *Config) FinalLapStart() time.Time {
	duration := c.EndTime.Sub(c.StartTime)
	return c.StartTime.Add(duration * 3 / 4)
}

// PhaseAt computes the lifecycle phase from wall-clock time. Boundaries are
// inclusive on the later phase: at exactly StartTime the match is Live, at
// exactly EndTime it is Ended.
func (c *Config) PhaseAt(now time.Time) Phase {
	if now.Before(c.StartTime) {
		return PhaseScheduled
	}
	if now.Before(c.EndTime) {
		return PhaseLive
	}
	return PhaseEnded
}

// FinalLapAt reports whether the final-lap multiplier is active at the
// given instant. The boundary is inclusive.
func (c *Config) FinalLapAt(at time.Time) bool {
	return c.FinalLapEnabled && !at.Before(c.FinalLapStart())
}

// MultiplierAt composes the point multiplier for a problem solved at the
// given instant: x2 for the mystery problem, x2 inside the final lap, both
// stacking. The instant must be the solve's own timestamp, never the time
// scoring happens to run.
func (c *Config) MultiplierAt(problemIndex int, solvedAt time.Time) float64 {
	multiplier := 1.0
	if problemIndex == c.MysteryProblemIndex {
		multiplier *= 2
	}
	if c.FinalLapAt(solvedAt) {
		multiplier *= 2
	}
	return multiplier
}

// Handles returns the player handles in config order.
func (c *Config) Handles() []string {
	handles := make([]string, len(c.Players))
	for i, p := range c.Players {
		handles[i] = p.Handle
	}
	return handles
}

// ProblemIndex returns the position of a problem ID in the config's problem
// list, or -1 when the problem is not part of the match.
func (c *Config) ProblemIndex(problemID string) int {
	for i, p := range c.Problems {
		if p.ID() == problemID {
			return i
		}
	}
	return -1
}
