package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cryptobroker/src/database"
	"cryptobroker/src/model"
)

// PickHistoryRepository persists the append-only record of past picks used
// by the scanner's cooldown lookups.
type PickHistoryRepository struct {
	db *gorm.DB
}

// NewPickHistoryRepository creates a new repository instance using the main
// read/write database.
func NewPickHistoryRepository() *PickHistoryRepository {
	logger.WithField("component", "PickHistoryRepository").
		Info("Creating new PickHistoryRepository with MainDB")

	return &PickHistoryRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PickHistoryRepository) WithDB(db *gorm.DB) *PickHistoryRepository {
	return &PickHistoryRepository{db: db}
}

// SaveSignalPicks appends one history row per scored pick of the signal.
// Wildcard picks carry no score ranking and are skipped.
func (r *PickHistoryRepository) SaveSignalPicks(ctx context.Context, sig *model.Signal) error {
	rows := make([]model.PickHistory, 0, len(sig.Picks))
	for _, p := range sig.Picks {
		if p.Wildcard {
			continue
		}
		rows = append(rows, model.PickHistory{
			SignalID: sig.ID,
			CoinID:   p.CoinID,
			Symbol:   p.Symbol,
			Score:    p.Score,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Create(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "PickHistoryRepository",
			"op":        "SaveSignalPicks",
			"signal_id": sig.ID,
		}).WithError(err).Error("Failed to persist signal picks")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "PickHistoryRepository",
		"op":        "SaveSignalPicks",
		"signal_id": sig.ID,
		"rows":      len(rows),
	}).Info("Signal picks persisted")

	return nil
}

// LastScores returns the most recent n recorded scores for a coin, newest
// first. Fewer rows than n is not an error.
func (r *PickHistoryRepository) LastScores(ctx context.Context, coinID string, n int) ([]float64, error) {
	if n <= 0 {
		return []float64{}, nil
	}

	var rows []model.PickHistory

	err := r.db.WithContext(ctx).
		Where("coin_id = ?", coinID).
		Order("id DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PickHistoryRepository",
			"op":      "LastScores",
			"coin_id": coinID,
		}).WithError(err).Error("Failed to fetch pick history")

		return nil, err
	}

	scores := make([]float64, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, row.Score)
	}
	return scores, nil
}
