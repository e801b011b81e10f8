package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cryptobroker/src/database"
	"cryptobroker/src/model"
)

// Structured rejections for lifecycle violations. The API layer maps these
// to 409 responses instead of mutating state.
var (
	ErrTradeNotFound = errors.New("trade not found")
	ErrTradeClosed   = errors.New("trade already closed")
)

// TradeRepository handles read/write operations for trades.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main
// read/write database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Info("Creating new TradeRepository with MainDB")

	return &TradeRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade. The given trade is updated with the generated
// ID and timestamps.
func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"coin_id":  trade.CoinID,
		"invested": trade.InvestedEUR,
	}).Debug("Creating new trade")

	err := r.db.WithContext(ctx).Create(trade).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"trade_id": trade.ID,
	}).Info("Trade created successfully")

	return nil
}

// FindByID fetches a single trade by its primary ID.
// Returns (nil, nil) if the trade is not found.
func (r *TradeRepository) FindByID(ctx context.Context, id uint) (*model.Trade, error) {
	var trade model.Trade

	err := r.db.WithContext(ctx).First(&trade, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "TradeRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Trade not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch trade by ID")

		return nil, err
	}

	return &trade, nil
}

// FindOpen returns all trades that have not been closed, oldest first.
// The position watcher iterates this set every cycle.
func (r *TradeRepository) FindOpen(ctx context.Context) ([]model.Trade, error) {
	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("sold_at IS NULL").
		Order("id ASC").
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindOpen",
		}).WithError(err).Error("Failed to fetch open trades")

		return nil, err
	}

	return trades, nil
}

// FindAll returns every trade, newest first.
func (r *TradeRepository) FindAll(ctx context.Context) ([]model.Trade, error) {
	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindAll",
		}).WithError(err).Error("Failed to fetch trades")

		return nil, err
	}

	return trades, nil
}

// SaveBatch persists a set of mutated trades in one transaction. The
// watcher calls this once per cycle with only the rows that changed.
func (r *TradeRepository) SaveBatch(ctx context.Context, trades []*model.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, trade := range trades {
			if err := tx.Save(trade).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "SaveBatch",
			"rows": len(trades),
		}).WithError(err).Error("Failed to save trade batch")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo": "TradeRepository",
		"op":   "SaveBatch",
		"rows": len(trades),
	}).Info("Trade batch saved")

	return nil
}

// Close finalizes a trade with its realized exit amount. Closing an
// already-closed trade returns ErrTradeClosed without mutating anything.
func (r *TradeRepository) Close(ctx context.Context, id uint, soldEUR float64, at time.Time) (*model.Trade, error) {
	trade, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, ErrTradeNotFound
	}
	if !trade.IsOpen() {
		return nil, ErrTradeClosed
	}

	trade.SoldEUR = &soldEUR
	trade.SoldAt = &at

	if err := r.db.WithContext(ctx).Save(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Close",
			"id":   id,
		}).WithError(err).Error("Failed to close trade")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Close",
		"id":       id,
		"sold_eur": soldEUR,
	}).Info("Trade closed")

	return trade, nil
}

// Delete removes a trade. Deletion is only permitted while the trade is
// still open; a closed trade is immutable except for read.
func (r *TradeRepository) Delete(ctx context.Context, id uint) error {
	trade, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if trade == nil {
		return ErrTradeNotFound
	}
	if !trade.IsOpen() {
		return ErrTradeClosed
	}

	if err := r.db.WithContext(ctx).Delete(&model.Trade{}, id).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Delete",
			"id":   id,
		}).WithError(err).Error("Failed to delete trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo": "TradeRepository",
		"op":   "Delete",
		"id":   id,
	}).Info("Trade deleted")

	return nil
}
