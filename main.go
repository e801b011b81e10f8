package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/ai"
	"cryptobroker/src/connectors"
	"cryptobroker/src/database"
	"cryptobroker/src/news"
	"cryptobroker/src/notifier"
	"cryptobroker/src/regime"
	"cryptobroker/src/repository"
	"cryptobroker/src/scanner"
	"cryptobroker/src/scheduler"
	"cryptobroker/src/scorer"
	"cryptobroker/src/server"
	"cryptobroker/src/watcher"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.DebugLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	connCfg := connectors.GetConfig()
	gecko := connectors.NewCoinGeckoClient(connCfg.CoinGeckoBaseURL, connCfg.VsCurrency)
	coinbase := connectors.NewCoinbaseClient(connCfg.CoinbaseBaseURL, connCfg.ListedSymbolsTTL)

	mail := notifier.NewEmailNotifier(notifier.GetConfig())
	picks := repository.NewPickHistoryRepository()
	trades := repository.NewTradeRepository()

	state := scanner.NewState()
	scanCfg := scanner.GetConfig()
	scan := scanner.New(
		scanCfg,
		scorer.GetWeights(),
		gecko,
		coinbase,
		regime.NewDetector(gecko, regime.GetConfig()),
		picks,
		mail,
		state,
	)
	if scanCfg.WildcardsEnabled {
		scan.WithWildcards(news.NewMiner(news.GetConfig()), ai.NewEvaluator(ai.GetConfig()))
	}

	watch := watcher.New(watcher.GetConfig(), gecko, trades, mail)

	sched, err := scheduler.New(scheduler.GetConfig(), scan, watch)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build scheduler")
	}
	if err := sched.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}
	defer sched.Stop()

	server.StartServer(server.GetConfig().Port, state, scan, trades)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
