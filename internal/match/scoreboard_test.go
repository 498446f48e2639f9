package match

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cpduel/cpduel/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptedAt(handle string, id int64, contestID int, index string, at time.Time) Submission {
	return Submission{
		ID:                  id,
		Handle:              handle,
		ContestID:           contestID,
		Index:               index,
		Verdict:             VerdictAccepted,
		CreationTimeSeconds: at.Unix(),
	}
}

func TestBoard_FirstSolveCredits(t *testing.T) {
	cfg := testConfig(t)
	board := NewBoard(&cfg, Hooks{})

	board.Apply(acceptedAt("alice", 10, 100, "A", cfg.StartTime.Add(5*time.Minute)))

	scores := board.Scores()
	assert.Equal(t, scoring.BasePoints(1000), scores["alice"])
	assert.Equal(t, 0, scores["bob"])

	rec, ok := board.Solves()["100-A"]
	require.True(t, ok)
	assert.Equal(t, "alice", rec.Handle)
	assert.Equal(t, int64(10), rec.SubmissionID)
}

func TestBoard_NonAcceptedOnlyUpdatesStatus(t *testing.T) {
	cfg := testConfig(t)
	board := NewBoard(&cfg, Hooks{})

	sub := acceptedAt("alice", 10, 100, "A", cfg.StartTime)
	sub.Verdict = VerdictWrongAnswer
	board.Apply(sub)

	assert.Empty(t, board.Solves())
	assert.Equal(t, 0, board.Scores()["alice"])
	assert.Equal(t, VerdictWrongAnswer, board.Statuses()["100-A"]["alice"])
}

func TestBoard_ForeignProblemIgnored(t *testing.T) {
	cfg := testConfig(t)
	board := NewBoard(&cfg, Hooks{})

	board.Apply(acceptedAt("alice", 10, 999, "Z", cfg.StartTime))

	assert.Empty(t, board.Solves())
	assert.Empty(t, board.Statuses())
	assert.Equal(t, 0, board.Scores()["alice"])
}

// The §8-style race: B solves earlier in real time but is observed after A.
// The win must move to B and A's speculative credit must be reverted.
func TestBoard_LateObservedEarlierSolveWins(t *testing.T) {
	cfg := testConfig(t)
	board := NewBoard(&cfg, Hooks{})

	board.Apply(acceptedAt("alice", 5, 100, "A", cfg.StartTime.Add(10*time.Second)))
	board.Apply(acceptedAt("bob", 7, 100, "A", cfg.StartTime.Add(5*time.Second)))

	scores := board.Scores()
	assert.Equal(t, 0, scores["alice"], "alice's credit must be fully reverted")
	assert.Equal(t, scoring.BasePoints(1000), scores["bob"])

	rec := board.Solves()["100-A"]
	assert.Equal(t, "bob", rec.Handle)
	assert.Equal(t, int64(7), rec.SubmissionID)
}

func TestBoard_TieBreakOnSubmissionID(t *testing.T) {
	cfg := testConfig(t)
	at := cfg.StartTime.Add(time.Minute)

	t.Run("smaller id delivered second", func(t *testing.T) {
		board := NewBoard(&cfg, Hooks{})
		board.Apply(acceptedAt("alice", 9, 100, "A", at))
		board.Apply(acceptedAt("bob", 3, 100, "A", at))
		assert.Equal(t, "bob", board.Solves()["100-A"].Handle)
	})

	t.Run("smaller id delivered first", func(t *testing.T) {
		board := NewBoard(&cfg, Hooks{})
		board.Apply(acceptedAt("bob", 3, 100, "A", at))
		board.Apply(acceptedAt("alice", 9, 100, "A", at))
		assert.Equal(t, "bob", board.Solves()["100-A"].Handle)
	})
}

func TestBoard_RedeliveryIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	board := NewBoard(&cfg, Hooks{})

	sub := acceptedAt("alice", 10, 100, "A", cfg.StartTime.Add(time.Minute))
	board.Apply(sub)
	board.Apply(sub)

	assert.Equal(t, scoring.BasePoints(1000), board.Scores()["alice"], "no double crediting")
}

// Replacement points must be computed from the new winning submission's own
// timestamp, not from the time the correction runs. Here the displaced
// winner solved inside the final lap but the true winner solved before it.
func TestBoard_ReplacementUsesWinnersOwnTimestamp(t *testing.T) {
	cfg := testConfig(t)
	cfg.FinalLapEnabled = true
	lapStart := cfg.FinalLapStart()
	board := NewBoard(&cfg, Hooks{})

	board.Apply(acceptedAt("alice", 50, 100, "A", lapStart.Add(time.Minute)))
	assert.Equal(t, scoring.Award(1000, 2), board.Scores()["alice"])

	board.Apply(acceptedAt("bob", 8, 100, "A", lapStart.Add(-time.Minute)))

	scores := board.Scores()
	assert.Equal(t, 0, scores["alice"])
	assert.Equal(t, scoring.Award(1000, 1), scores["bob"], "pre-lap solve scores without the lap multiplier")
}

func TestBoard_MysteryAndFinalLapStack(t *testing.T) {
	cfg := testConfig(t)
	cfg.FinalLapEnabled = true
	cfg.MysteryProblemIndex = 1
	board := NewBoard(&cfg, Hooks{})

	board.Apply(acceptedAt("alice", 10, 100, "B", cfg.FinalLapStart()))

	assert.Equal(t, 4*scoring.BasePoints(1500), board.Scores()["alice"])
}

// Order-independence: any delivery permutation that keeps each handle's own
// stream in increasing-id order ends with identical scores and records.
func TestBoard_FinalStateIsOrderIndependent(t *testing.T) {
	cfg := testConfig(t)
	start := cfg.StartTime

	subs := []Submission{
		acceptedAt("alice", 5, 100, "A", start.Add(10*time.Second)),
		acceptedAt("alice", 8, 100, "B", start.Add(40*time.Second)),
		acceptedAt("bob", 3, 100, "A", start.Add(5*time.Second)),
		acceptedAt("bob", 4, 200, "C", start.Add(30*time.Second)),
		acceptedAt("bob", 9, 100, "B", start.Add(40*time.Second)),
	}

	reference := NewBoard(&cfg, Hooks{})
	for _, sub := range subs {
		reference.Apply(sub)
	}
	wantScores := reference.Scores()
	wantSolves := reference.Solves()

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		perm := validPermutation(rng, subs)
		board := NewBoard(&cfg, Hooks{})
		for _, sub := range perm {
			board.Apply(sub)
		}
		require.Equal(t, wantScores, board.Scores(), "permutation %v", ids(perm))
		require.Equal(t, wantSolves, board.Solves(), "permutation %v", ids(perm))
	}
}

// validPermutation shuffles submissions but re-sorts each handle's entries
// so per-handle delivery order stays increasing by id, mirroring the
// poller's guarantee.
func validPermutation(rng *rand.Rand, subs []Submission) []Submission {
	perm := make([]Submission, len(subs))
	copy(perm, subs)
	rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

	slots := make(map[string][]int)
	for i, sub := range perm {
		slots[sub.Handle] = append(slots[sub.Handle], i)
	}
	for handle, indexes := range slots {
		var own []Submission
		for _, sub := range perm {
			if sub.Handle == handle {
				own = append(own, sub)
			}
		}
		for i := 0; i < len(own); i++ {
			for j := i + 1; j < len(own); j++ {
				if own[j].ID < own[i].ID {
					own[i], own[j] = own[j], own[i]
				}
			}
		}
		for k, idx := range indexes {
			perm[idx] = own[k]
		}
	}
	return perm
}

func ids(subs []Submission) []int64 {
	out := make([]int64, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}

func TestBoard_ScoreChangeHooksFireAtomically(t *testing.T) {
	cfg := testConfig(t)
	type change struct {
		handle string
		points int
	}
	var changes []change
	var solves []string
	board := NewBoard(&cfg, Hooks{
		OnScoreChange: func(handle string, points int) {
			changes = append(changes, change{handle, points})
		},
		OnSolve: func(problemID, handle string) {
			solves = append(solves, problemID+"/"+handle)
		},
	})

	board.Apply(acceptedAt("alice", 5, 100, "A", cfg.StartTime.Add(10*time.Second)))
	board.Apply(acceptedAt("bob", 7, 100, "A", cfg.StartTime.Add(5*time.Second)))

	base := scoring.BasePoints(1000)
	assert.Equal(t, []change{
		{"alice", base}, // initial credit
		{"alice", 0},    // debit on winner revision
		{"bob", base},   // credit of the revised winner
	}, changes)
	assert.Equal(t, []string{"100-A/alice", "100-A/bob"}, solves)
}
