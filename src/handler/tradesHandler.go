package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/model"
	"cryptobroker/src/repository"
	"cryptobroker/src/targets"
)

type tradeStore interface {
	Create(ctx context.Context, trade *model.Trade) error
	FindAll(ctx context.Context) ([]model.Trade, error)
	Close(ctx context.Context, id uint, soldEUR float64, at time.Time) (*model.Trade, error)
	Delete(ctx context.Context, id uint) error
}

type createTradeRequest struct {
	CoinID      string  `json:"coin_id"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	InvestedEUR float64 `json:"invested_eur"`
	BuyPriceUSD float64 `json:"buy_price_usd"`
	EURUSDRate  float64 `json:"eur_usd_rate"`
	Note        string  `json:"note"`
}

type closeTradeRequest struct {
	SoldEUR float64 `json:"sold_eur"`
}

// CreateTradeHandler returns a handler that records a manually-confirmed
// trade entry. Units are derived from the invested amount, and stop/target
// levels come from the current signal's ATR% when the coin is in it.
func CreateTradeHandler(store tradeStore, source signalSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.CoinID == "" {
			http.Error(w, "coin_id is required", http.StatusBadRequest)
			return
		}
		if req.InvestedEUR <= 0 {
			http.Error(w, "invested_eur must be positive", http.StatusBadRequest)
			return
		}
		if req.BuyPriceUSD <= 0 {
			http.Error(w, "buy_price_usd must be positive", http.StatusBadRequest)
			return
		}

		rate := req.EURUSDRate
		if rate <= 0 {
			rate = 1.0
		}
		units := req.InvestedEUR * rate / req.BuyPriceUSD

		sugg := targets.Suggest(req.BuyPriceUSD, currentATRPct(source, req.CoinID))

		now := time.Now().UTC()
		trade := &model.Trade{
			CoinID:        req.CoinID,
			Symbol:        req.Symbol,
			Name:          req.Name,
			InvestedEUR:   req.InvestedEUR,
			InvestedAt:    now,
			BuyPriceUSD:   req.BuyPriceUSD,
			EURUSDRate:    rate,
			Units:         units,
			HighWaterUSD:  req.BuyPriceUSD,
			LastPriceUSD:  req.BuyPriceUSD,
			StopLossUSD:   sugg.StopLoss.InexactFloat64(),
			TakeProfitUSD: sugg.TakeProfit1.InexactFloat64(),
			Note:          req.Note,
		}

		if err := store.Create(r.Context(), trade); err != nil {
			logger.WithError(err).Error("failed to create trade")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(trade); err != nil {
			logger.WithError(err).Error("failed to encode create trade response")
		}
	}
}

// currentATRPct looks the coin up in the latest signal. Coins bought off-
// signal fall back to zero, which the target math clamps to its floors.
func currentATRPct(source signalSource, coinID string) float64 {
	sig := source.Current()
	if sig == nil {
		return 0
	}
	for _, p := range sig.Picks {
		if p.CoinID == coinID {
			return p.ATRPct
		}
	}
	return 0
}

// ListTradesHandler returns a handler that lists every trade, newest first.
func ListTradesHandler(store tradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trades, err := store.FindAll(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to list trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(trades); err != nil {
			logger.WithError(err).Error("failed to encode trade list response")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// CloseTradeHandler returns a handler that finalizes a trade with its
// realized exit amount. Closing twice answers 409.
func CloseTradeHandler(store tradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := tradeID(w, r)
		if !ok {
			return
		}

		var req closeTradeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.SoldEUR < 0 {
			http.Error(w, "sold_eur must not be negative", http.StatusBadRequest)
			return
		}

		trade, err := store.Close(r.Context(), id, req.SoldEUR, time.Now().UTC())
		if err != nil {
			writeTradeError(w, err, id)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(trade); err != nil {
			logger.WithError(err).Error("failed to encode close trade response")
		}
	}
}

// DeleteTradeHandler returns a handler that removes an open trade. Closed
// trades are part of the realized history and answer 409.
func DeleteTradeHandler(store tradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := tradeID(w, r)
		if !ok {
			return
		}

		if err := store.Delete(r.Context(), id); err != nil {
			writeTradeError(w, err, id)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportTradesHandler returns a handler that streams the full trade book
// as CSV, one row per trade with realized P/L where closed.
func ExportTradesHandler(store tradeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trades, err := store.FindAll(r.Context())
		if err != nil {
			logger.WithError(err).Error("failed to export trades")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)

		cw := csv.NewWriter(w)
		header := []string{
			"id", "coin_id", "symbol", "invested_eur", "invested_at",
			"buy_price_usd", "units", "last_price_usd", "high_water_usd",
			"stop_loss_usd", "take_profit_usd", "sold_eur", "sold_at", "pl_eur",
		}
		if err := cw.Write(header); err != nil {
			logger.WithError(err).Error("failed to write CSV header")
			return
		}

		for _, t := range trades {
			soldEUR, soldAt, pl := "", "", ""
			if t.SoldEUR != nil {
				soldEUR = fmt.Sprintf("%.2f", *t.SoldEUR)
				pl = fmt.Sprintf("%.2f", *t.SoldEUR-t.InvestedEUR)
			}
			if t.SoldAt != nil {
				soldAt = t.SoldAt.UTC().Format(time.RFC3339)
			}

			row := []string{
				strconv.FormatUint(uint64(t.ID), 10),
				t.CoinID,
				t.Symbol,
				fmt.Sprintf("%.2f", t.InvestedEUR),
				t.InvestedAt.UTC().Format(time.RFC3339),
				fmt.Sprintf("%.6f", t.BuyPriceUSD),
				fmt.Sprintf("%.8f", t.Units),
				fmt.Sprintf("%.6f", t.LastPriceUSD),
				fmt.Sprintf("%.6f", t.HighWaterUSD),
				fmt.Sprintf("%.6f", t.StopLossUSD),
				fmt.Sprintf("%.6f", t.TakeProfitUSD),
				soldEUR,
				soldAt,
				pl,
			}
			if err := cw.Write(row); err != nil {
				logger.WithError(err).Error("failed to write CSV row")
				return
			}
		}
		cw.Flush()
	}
}

func tradeID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "invalid trade id", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

func writeTradeError(w http.ResponseWriter, err error, id uint) {
	switch {
	case errors.Is(err, repository.ErrTradeNotFound):
		http.Error(w, "trade not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrTradeClosed):
		http.Error(w, "trade already closed", http.StatusConflict)
	default:
		logger.WithError(err).WithField("trade_id", id).Error("trade operation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
