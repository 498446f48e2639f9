package database

import (
	"time"

	"github.com/cpduel/cpduel/internal/database/models"
	"github.com/cpduel/cpduel/internal/match"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Match CRUD

func CreateMatch(db *gorm.DB, cfg match.Config, status models.MatchStatus) error {
	row := models.Match{
		ID:        cfg.MatchID,
		Config:    models.ConfigJSON(cfg),
		Status:    status,
		StartTime: cfg.StartTime,
		EndTime:   cfg.EndTime,
	}
	return db.Create(&row).Error
}

func GetMatch(db *gorm.DB, id string) (*models.Match, error) {
	var row models.Match
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func UpdateMatchStatus(db *gorm.DB, id string, status models.MatchStatus) error {
	return db.Model(&models.Match{}).Where("id = ?", id).Update("status", status).Error
}

// GetUnfinishedMatches returns matches that were scheduled or live when the
// process last stopped, used for engine recovery on startup.
func GetUnfinishedMatches(db *gorm.DB) ([]models.Match, error) {
	var rows []models.Match
	err := db.Where("status IN ?", []models.MatchStatus{models.StatusScheduled, models.StatusLive}).
		Order("start_time asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteStaleMatches removes scheduled matches whose end time passed
// without them ever running, plus abandoned rows older than the cutoff.
func DeleteStaleMatches(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("status IN ? AND end_time < ?",
		[]models.MatchStatus{models.StatusScheduled, models.StatusAbandoned, models.StatusInterrupted}, cutoff).
		Delete(&models.Match{})
	return result.RowsAffected, result.Error
}

// Result CRUD

// SaveResult persists the frozen snapshot of an ended match. Saving twice
// for the same match overwrites, so a crash between snapshot and status
// update stays recoverable.
func SaveResult(db *gorm.DB, snapshot match.Snapshot) error {
	row := models.Result{
		MatchID:  snapshot.MatchID,
		Snapshot: models.SnapshotJSON(snapshot),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"snapshot"}),
	}).Create(&row).Error
}

func GetResult(db *gorm.DB, matchID string) (*models.Result, error) {
	var row models.Result
	if err := db.Where("match_id = ?", matchID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
