package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"cryptobroker/src/ai"
	"cryptobroker/src/connectors"
	"cryptobroker/src/database"
	"cryptobroker/src/news"
	"cryptobroker/src/notifier"
	"cryptobroker/src/regime"
	"cryptobroker/src/repository"
	"cryptobroker/src/scanner"
	"cryptobroker/src/scorer"
	"cryptobroker/src/watcher"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Cryptobroker CMD"
	app.Usage = "The cryptobroker command line interface"

	app.Commands = []cli.Command{
		scanCMD,
		watchCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	scanCMD = cli.Command{
		Name:      "scan",
		Usage:     "run one scan cycle",
		Action:    scanAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "kind",
				Usage: "scan kind: deep or rescore",
				Value: scanner.KindDeep,
			},
		},
		Description: `Run one scan-score-signal cycle and exit`,
	}
	watchCMD = cli.Command{
		Name:        "watch",
		Usage:       "run one position watch cycle",
		Action:      watchAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run one position watch cycle and exit`,
	}
)

func scanAction(c *cli.Context) error {
	logrus.Info("Starting scan CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	connCfg := connectors.GetConfig()
	gecko := connectors.NewCoinGeckoClient(connCfg.CoinGeckoBaseURL, connCfg.VsCurrency)
	coinbase := connectors.NewCoinbaseClient(connCfg.CoinbaseBaseURL, connCfg.ListedSymbolsTTL)

	scanCfg := scanner.GetConfig()
	scan := scanner.New(
		scanCfg,
		scorer.GetWeights(),
		gecko,
		coinbase,
		regime.NewDetector(gecko, regime.GetConfig()),
		repository.NewPickHistoryRepository(),
		notifier.NewEmailNotifier(notifier.GetConfig()),
		scanner.NewState(),
	)
	if scanCfg.WildcardsEnabled {
		scan.WithWildcards(news.NewMiner(news.GetConfig()), ai.NewEvaluator(ai.GetConfig()))
	}

	sig, err := scan.Run(context.Background(), c.String("kind"))
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	logrus.WithFields(map[string]interface{}{
		"signal": sig.ID,
		"regime": sig.Regime,
		"picks":  len(sig.Picks),
	}).Info("Scan done")

	return nil
}

func watchAction(_ *cli.Context) error {
	logrus.Info("Starting watch CMD")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	connCfg := connectors.GetConfig()
	gecko := connectors.NewCoinGeckoClient(connCfg.CoinGeckoBaseURL, connCfg.VsCurrency)

	watch := watcher.New(
		watcher.GetConfig(),
		gecko,
		repository.NewTradeRepository(),
		notifier.NewEmailNotifier(notifier.GetConfig()),
	)

	if err := watch.Run(context.Background()); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
