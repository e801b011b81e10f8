package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/handler"
	"cryptobroker/src/repository"
	"cryptobroker/src/scanner"
)

// StartServer wires the routes and blocks until SIGINT or SIGTERM.
func StartServer(port string, state *scanner.State, scan *scanner.Scanner, trades *repository.TradeRepository) {
	// Router with middleware
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/signal", handler.CurrentSignalHandler(state))
		r.Post("/scan/{kind}", handler.RunScanHandler(scan))

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", handler.ListTradesHandler(trades))
			r.Post("/", handler.CreateTradeHandler(trades, state))
			r.Get("/export", handler.ExportTradesHandler(trades))
			r.Post("/{id}/close", handler.CloseTradeHandler(trades))
			r.Delete("/{id}", handler.DeleteTradeHandler(trades))
		})
	})

	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
