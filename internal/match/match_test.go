package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	return Config{
		MatchID: "match-test",
		Players: []Player{
			{Handle: "alice", Rating: 1500},
			{Handle: "bob", Rating: 1700},
		},
		Problems: []Problem{
			{ContestID: 100, Index: "A", Name: "One", Rating: 1000},
			{ContestID: 100, Index: "B", Name: "Two", Rating: 1500},
			{ContestID: 200, Index: "C", Name: "Three", Rating: 1900},
		},
		StartTime:           start,
		EndTime:             start.Add(time.Hour),
		MysteryProblemIndex: -1,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "single player",
			mutate:  func(c *Config) { c.Players = c.Players[:1] },
			wantErr: "two players",
		},
		{
			name:    "duplicate handle",
			mutate:  func(c *Config) { c.Players[1].Handle = c.Players[0].Handle },
			wantErr: "duplicate handle",
		},
		{
			name:    "no problems",
			mutate:  func(c *Config) { c.Problems = nil },
			wantErr: "no problems",
		},
		{
			name:    "duplicate problem",
			mutate:  func(c *Config) { c.Problems[1] = c.Problems[0] },
			wantErr: "duplicate problem",
		},
		{
			name:    "end before start",
			mutate:  func(c *Config) { c.EndTime = c.StartTime.Add(-time.Minute) },
			wantErr: "end time",
		},
		{
			name:    "end equals start",
			mutate:  func(c *Config) { c.EndTime = c.StartTime },
			wantErr: "end time",
		},
		{
			name:    "mystery index out of range",
			mutate:  func(c *Config) { c.MysteryProblemIndex = 3 },
			wantErr: "mystery problem index",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPhaseAt_Boundaries(t *testing.T) {
	cfg := testConfig(t)

	assert.Equal(t, PhaseScheduled, cfg.PhaseAt(cfg.StartTime.Add(-time.Second)))
	// Both boundaries are inclusive on the later phase.
	assert.Equal(t, PhaseLive, cfg.PhaseAt(cfg.StartTime))
	assert.Equal(t, PhaseLive, cfg.PhaseAt(cfg.EndTime.Add(-time.Second)))
	assert.Equal(t, PhaseEnded, cfg.PhaseAt(cfg.EndTime))
	assert.Equal(t, PhaseEnded, cfg.PhaseAt(cfg.EndTime.Add(time.Hour)))
}

func TestFinalLap_Boundary(t *testing.T) {
	cfg := testConfig(t)
	cfg.FinalLapEnabled = true

	lapStart := cfg.StartTime.Add(45 * time.Minute)
	assert.Equal(t, lapStart, cfg.FinalLapStart())
	assert.False(t, cfg.FinalLapAt(lapStart.Add(-time.Millisecond)))
	assert.True(t, cfg.FinalLapAt(lapStart), "activation is inclusive")
	assert.True(t, cfg.FinalLapAt(cfg.EndTime))
}

func TestFinalLap_Disabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.FinalLapEnabled = false
	assert.False(t, cfg.FinalLapAt(cfg.EndTime))
}

func TestMultiplierAt(t *testing.T) {
	cfg := testConfig(t)
	cfg.FinalLapEnabled = true
	cfg.MysteryProblemIndex = 1
	lapStart := cfg.FinalLapStart()

	tests := []struct {
		name         string
		problemIndex int
		at           time.Time
		want         float64
	}{
		{name: "plain problem before lap", problemIndex: 0, at: cfg.StartTime, want: 1},
		{name: "mystery problem", problemIndex: 1, at: cfg.StartTime, want: 2},
		{name: "final lap", problemIndex: 0, at: lapStart, want: 2},
		{name: "mystery in final lap stacks", problemIndex: 1, at: lapStart, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.MultiplierAt(tt.problemIndex, tt.at))
		})
	}
}

func TestVerdictFromJudge(t *testing.T) {
	assert.Equal(t, VerdictAccepted, VerdictFromJudge("OK"))
	assert.Equal(t, VerdictWrongAnswer, VerdictFromJudge("WRONG_ANSWER"))
	assert.Equal(t, VerdictTimeLimit, VerdictFromJudge("TIME_LIMIT_EXCEEDED"))
	assert.Equal(t, VerdictOther, VerdictFromJudge("COMPILATION_ERROR"))
	assert.Equal(t, VerdictOther, VerdictFromJudge(""))
}

func TestSolveRecordBeats(t *testing.T) {
	earlier := SolveRecord{SolveTimeMillis: 1000, SubmissionID: 9}
	later := SolveRecord{SolveTimeMillis: 2000, SubmissionID: 3}
	assert.True(t, earlier.Beats(later))
	assert.False(t, later.Beats(earlier))

	tieSmallID := SolveRecord{SolveTimeMillis: 1000, SubmissionID: 3}
	assert.True(t, tieSmallID.Beats(earlier), "equal times resolve to smaller submission id")
	assert.False(t, earlier.Beats(tieSmallID))
}
