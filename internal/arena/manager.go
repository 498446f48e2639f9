// Package arena hosts the running match engines and bridges their events
// to the live feed broker and the database.
package arena

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cpduel/cpduel/internal/config"
	"github.com/cpduel/cpduel/internal/database"
	"github.com/cpduel/cpduel/internal/database/models"
	"github.com/cpduel/cpduel/internal/judge"
	"github.com/cpduel/cpduel/internal/match"
	"github.com/cpduel/cpduel/internal/pubsub"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// judgeSource adapts the judge client to the engine's collaborator
// contract, mapping wire verdicts onto the engine's verdict set.
type judgeSource struct {
	client *judge.Client
}

func (s judgeSource) Submissions(ctx context.Context, handle string) ([]match.Submission, error) {
	history, err := s.client.UserStatus(ctx, handle)
	if err != nil {
		return nil, err
	}
	subs := make([]match.Submission, len(history))
	for i, entry := range history {
		subs[i] = match.Submission{
			ID:                  entry.ID,
			Handle:              handle,
			ContestID:           entry.Problem.ContestID,
			Index:               entry.Problem.Index,
			Verdict:             match.VerdictFromJudge(entry.Verdict),
			CreationTimeSeconds: entry.CreationTimeSeconds,
		}
	}
	return subs, nil
}

// Manager owns every in-memory engine, keyed by match ID.
type Manager struct {
	cfg    *config.Config
	db     *gorm.DB
	broker *pubsub.Broker
	source match.SubmissionSource

	mu      sync.RWMutex
	engines map[string]*match.Engine
	endedAt map[string]time.Time
}

func NewManager(cfg *config.Config, db *gorm.DB, broker *pubsub.Broker, client *judge.Client) *Manager {
	return &Manager{
		cfg:     cfg,
		db:      db,
		broker:  broker,
		source:  judgeSource{client: client},
		engines: make(map[string]*match.Engine),
		endedAt: make(map[string]time.Time),
	}
}

// StartMatch persists a new match and brings its engine up.
func (m *Manager) StartMatch(cfg match.Config) error {
	engine, err := m.buildEngine(cfg)
	if err != nil {
		return err
	}

	status := models.StatusScheduled
	if engine.Phase() == match.PhaseLive {
		status = models.StatusLive
	}
	if err := database.CreateMatch(m.db, cfg, status); err != nil {
		return fmt.Errorf("persist match %s: %w", cfg.MatchID, err)
	}

	m.mu.Lock()
	if _, exists := m.engines[cfg.MatchID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("match %s already running", cfg.MatchID)
	}
	m.engines[cfg.MatchID] = engine
	m.mu.Unlock()

	engine.Start()
	zap.S().Infof("match %s started, %d players, %d problems", cfg.MatchID, len(cfg.Players), len(cfg.Problems))
	return nil
}

func (m *Manager) buildEngine(cfg match.Config) (*match.Engine, error) {
	matchID := cfg.MatchID
	hooks := match.Hooks{
		OnPhaseChange: func(phase match.Phase) {
			if phase == match.PhaseLive {
				if err := database.UpdateMatchStatus(m.db, matchID, models.StatusLive); err != nil {
					zap.S().Errorf("failed to mark match %s live: %v", matchID, err)
				}
			}
			m.broker.Publish(matchID, pubsub.FeedEvent{
				Type: pubsub.EventPhase, MatchID: matchID, Phase: string(phase),
			})
		},
		OnScoreChange: func(handle string, points int) {
			m.broker.Publish(matchID, pubsub.FeedEvent{
				Type: pubsub.EventScore, MatchID: matchID, Handle: handle, Points: points,
			})
		},
		OnSolve: func(problemID, handle string) {
			m.broker.Publish(matchID, pubsub.FeedEvent{
				Type: pubsub.EventSolve, MatchID: matchID, ProblemID: problemID, Handle: handle,
			})
		},
		OnStatusChange: func(problemID, handle string, verdict match.Verdict) {
			m.broker.Publish(matchID, pubsub.FeedEvent{
				Type: pubsub.EventStatus, MatchID: matchID, ProblemID: problemID,
				Handle: handle, Verdict: string(verdict),
			})
		},
		OnJudgeOutage: func(cycles int) {
			zap.S().Warnf("judge unreachable for %d consecutive poll cycles in match %s", cycles, matchID)
			m.broker.Publish(matchID, pubsub.FeedEvent{
				Type: pubsub.EventWarning, MatchID: matchID,
				Message: "judge service unreachable, standings may lag",
			})
		},
		OnMatchEnded: func(snapshot match.Snapshot) {
			m.finishMatch(snapshot)
		},
	}

	opts := match.Options{
		TickInterval: time.Duration(m.cfg.Engine.TickSeconds) * time.Second,
		Poller: match.PollerOptions{
			Interval:     time.Duration(m.cfg.Engine.PollSeconds) * time.Second,
			PlayerPause:  time.Duration(m.cfg.Engine.PlayerPauseMs) * time.Millisecond,
			OutageCycles: m.cfg.Engine.OutageCycles,
		},
	}
	return match.NewEngine(cfg, m.source, hooks, opts)
}

func (m *Manager) finishMatch(snapshot match.Snapshot) {
	if err := database.SaveResult(m.db, snapshot); err != nil {
		zap.S().Errorf("failed to persist results for match %s: %v", snapshot.MatchID, err)
	}
	if err := database.UpdateMatchStatus(m.db, snapshot.MatchID, models.StatusEnded); err != nil {
		zap.S().Errorf("failed to mark match %s ended: %v", snapshot.MatchID, err)
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		zap.S().Errorf("failed to encode snapshot for match %s: %v", snapshot.MatchID, err)
		payload = nil
	}
	m.broker.Publish(snapshot.MatchID, pubsub.FeedEvent{
		Type: pubsub.EventEnded, MatchID: snapshot.MatchID, Payload: payload,
	})

	m.mu.Lock()
	m.endedAt[snapshot.MatchID] = time.Now()
	m.mu.Unlock()
}

// Get returns the running engine for a match, if it is in memory.
func (m *Manager) Get(matchID string) (*match.Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	engine, ok := m.engines[matchID]
	return engine, ok
}

// Abandon stops a match without producing results and discards its state.
func (m *Manager) Abandon(matchID string) error {
	m.mu.Lock()
	engine, ok := m.engines[matchID]
	if ok {
		delete(m.engines, matchID)
		delete(m.endedAt, matchID)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("match %s not running", matchID)
	}

	engine.Abandon()
	if err := database.UpdateMatchStatus(m.db, matchID, models.StatusAbandoned); err != nil {
		zap.S().Errorf("failed to mark match %s abandoned: %v", matchID, err)
	}
	m.broker.Publish(matchID, pubsub.FeedEvent{
		Type: pubsub.EventWarning, MatchID: matchID, Message: "match abandoned by its creator",
	})
	m.broker.CloseTopic(matchID)
	return nil
}

// Recover restarts engines for matches that were scheduled or live when
// the process last stopped. The poller re-reads full judge histories, so a
// recovered live match reconstructs its board from scratch. Matches whose
// window already closed cannot be trusted and are marked interrupted.
func (m *Manager) Recover() error {
	rows, err := database.GetUnfinishedMatches(m.db)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, row := range rows {
		if !row.EndTime.After(now) {
			zap.S().Warnf("match %s ended while the service was down, marking interrupted", row.ID)
			if err := database.UpdateMatchStatus(m.db, row.ID, models.StatusInterrupted); err != nil {
				zap.S().Errorf("failed to mark match %s interrupted: %v", row.ID, err)
			}
			continue
		}

		engine, err := m.buildEngine(match.Config(row.Config))
		if err != nil {
			zap.S().Errorf("cannot rebuild engine for match %s: %v", row.ID, err)
			continue
		}
		m.mu.Lock()
		m.engines[row.ID] = engine
		m.mu.Unlock()
		engine.Start()
		zap.S().Infof("recovered match %s (%s)", row.ID, row.Status)
	}
	return nil
}

// EvictEnded drops ended engines that have been kept in memory longer than
// the retention window; their results live in the database. Returns the
// number of engines evicted.
func (m *Manager) EvictEnded(keep time.Duration) int {
	cutoff := time.Now().Add(-keep)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for matchID, endedAt := range m.endedAt {
		if endedAt.After(cutoff) {
			continue
		}
		delete(m.engines, matchID)
		delete(m.endedAt, matchID)
		m.broker.CloseTopic(matchID)
		evicted++
	}
	return evicted
}

// Shutdown stops the goroutines of every engine still running. Database
// rows keep their scheduled/live status so Recover picks them up on the
// next boot.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	engines := make([]*match.Engine, 0, len(m.engines))
	for _, engine := range m.engines {
		engines = append(engines, engine)
	}
	m.mu.Unlock()

	for _, engine := range engines {
		if _, ended := engine.Results(); !ended {
			engine.Abandon()
		}
	}
}
