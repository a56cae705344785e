package stats

import (
	"context"
	"encoding/json"
	"errors"

	"task-marketplace-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recorder is the gorm-backed rating/statistics collaborator. The completion
// coordinator talks to it through the completion.Stats interface only.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordRating stores a rating for a tasker. The optional category breakdown
// is kept as JSON alongside the score.
func (r *Recorder) RecordRating(ctx context.Context, userID string, rating int, breakdown map[string]int) error {
	var encoded string
	if len(breakdown) > 0 {
		raw, err := json.Marshal(breakdown)
		if err != nil {
			return err
		}
		encoded = string(raw)
	}

	rec := models.Rating{
		ID:        "rating-" + uuid.NewString(),
		TaskerID:  userID,
		Score:     rating,
		Breakdown: encoded,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// IncrementStat bumps the named per-user counter, creating it on first use.
func (r *Recorder) IncrementStat(ctx context.Context, userID, statName string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter models.StatCounter
		err := tx.Where("user_id = ? AND name = ?", userID, statName).First(&counter).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			counter = models.StatCounter{UserID: userID, Name: statName, Value: 1}
			return tx.Create(&counter).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&counter).
			Where("user_id = ? AND name = ?", userID, statName).
			Update("value", gorm.Expr("value + 1")).Error
	})
}

// AverageRating returns the mean score recorded for a tasker and the number
// of ratings it is based on.
func (r *Recorder) AverageRating(ctx context.Context, userID string) (float64, int64, error) {
	var row struct {
		Avg   float64
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(score), 0) as avg, COUNT(*) as count").
		Where("tasker_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}

// StatValue returns the current value of a named counter (0 when absent).
func (r *Recorder) StatValue(ctx context.Context, userID, statName string) (int64, error) {
	var counter models.StatCounter
	err := r.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, statName).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}
