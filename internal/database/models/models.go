package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/cpduel/cpduel/internal/match"
)

type MatchStatus string

const (
	StatusScheduled   MatchStatus = "Scheduled"
	StatusLive        MatchStatus = "Live"
	StatusEnded       MatchStatus = "Ended"
	StatusAbandoned   MatchStatus = "Abandoned"
	StatusInterrupted MatchStatus = "Interrupted"
)

// ConfigJSON stores a match config as a JSON column.
type ConfigJSON match.Config

func (c ConfigJSON) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ConfigJSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, c)
}

// SnapshotJSON stores a frozen results snapshot as a JSON column.
type SnapshotJSON match.Snapshot

func (s SnapshotJSON) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *SnapshotJSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, s)
}

// Match is the durable record of a match: its immutable config plus the
// coarse status used for recovery and cleanup. Start and end times are
// denormalized out of the config for querying.
type Match struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Config    ConfigJSON  `gorm:"type:text" json:"config"`
	Status    MatchStatus `gorm:"index" json:"status"`
	StartTime time.Time   `gorm:"index" json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
}

// Result is the frozen final state of an ended match, the only artifact
// besides the config that must survive a restart.
type Result struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	MatchID   string `gorm:"uniqueIndex" json:"match_id"`
	CreatedAt time.Time
	Snapshot  SnapshotJSON `gorm:"type:text" json:"snapshot"`
}
