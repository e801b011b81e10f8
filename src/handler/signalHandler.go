package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/model"
	"cryptobroker/src/scanner"
)

type signalSource interface {
	Current() *model.Signal
}

type scanRunner interface {
	Run(ctx context.Context, kind string) (*model.Signal, error)
}

// CurrentSignalHandler returns a handler serving the latest published
// signal. Before the first scan completes it answers 200 with a not_ready
// status so dashboards can poll without special-casing errors.
func CurrentSignalHandler(source signalSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sig := source.Current()
		w.Header().Set("Content-Type", "application/json")

		if sig == nil {
			if err := json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"}); err != nil {
				logger.WithError(err).Error("failed to encode not_ready response")
			}
			return
		}

		if err := json.NewEncoder(w).Encode(sig); err != nil {
			logger.WithError(err).Error("failed to encode signal response")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// RunScanHandler returns a handler that runs one scan cycle synchronously
// and responds with the freshly published signal.
func RunScanHandler(runner scanRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := chi.URLParam(r, "kind")
		if kind != scanner.KindDeep && kind != scanner.KindRescore {
			http.Error(w, "invalid scan kind", http.StatusBadRequest)
			return
		}

		sig, err := runner.Run(r.Context(), kind)
		if err != nil {
			logger.WithError(err).WithField("kind", kind).Error("manual scan failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sig); err != nil {
			logger.WithError(err).Error("failed to encode scan response")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}
