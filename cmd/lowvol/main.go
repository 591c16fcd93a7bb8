package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/lowvolsignal/config"
	"github.com/alejandrodnm/lowvolsignal/internal/adapters/notify"
	"github.com/alejandrodnm/lowvolsignal/internal/adapters/storage"
	"github.com/alejandrodnm/lowvolsignal/internal/application/pipeline"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")

	period := flag.Int("period", 0, "return period in trading days (overrides config)")
	buy := flag.Float64("buy", 0, "buy threshold, e.g. -0.01 (overrides config)")
	sell := flag.Float64("sell", 0, "sell threshold, e.g. 0.10 (overrides config)")

	backtest := flag.Bool("backtest", false, "run the monthly DCA backtest after the signal")
	trajectory := flag.Bool("trajectory", false, "print every backtest checkpoint")
	csvPath := flag.String("csv", "", "write backtest checkpoints to this CSV file (implies -backtest)")
	history := flag.Bool("history", false, "list stored runs and price coverage, then exit")
	collect := flag.Bool("collect", false, "fetch and store daily prices without computing a signal")
	rollback := flag.String("rollback", "", "delete stored prices for a date (YYYY-MM-DD or latest) and exit")
	mergeDSN := flag.String("merge", "", "copy all stored prices from this SQLite database into the configured store")
	sweep := flag.Bool("sweep", false, "evaluate a grid of periods and thresholds and rank by excess return")
	workers := flag.Int("workers", 0, "sweep worker goroutines (0 = NumCPU*2)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	// Solo los flags pasados explícitamente sobreescriben la config.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "period":
			cfg.Strategy.ReturnPeriod = period
		case "buy":
			cfg.Strategy.BuyThreshold = buy
		case "sell":
			cfg.Strategy.SellThreshold = sell
		}
	})

	params, err := cfg.Params()
	if err != nil {
		slog.Error("invalid strategy parameters", "err", err)
		os.Exit(1)
	}
	btParams, err := cfg.BacktestParams()
	if err != nil {
		slog.Error("invalid backtest parameters", "err", err)
		os.Exit(1)
	}
	startDate, err := cfg.StartDate()
	if err != nil {
		slog.Error("invalid start date", "err", err)
		os.Exit(1)
	}

	slog.Info("lowvol starting",
		"config", *configPath,
		"hl", cfg.Instruments.HL.Code,
		"benchmark", cfg.Instruments.Benchmark.Code,
		"period", params.Period,
		"buy", params.Buy,
		"sell", params.Sell,
		"storage", cfg.Storage.Driver,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN, cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "driver", cfg.Storage.Driver)
		os.Exit(1)
	}
	defer store.Close()

	console := notify.NewConsole(notify.Instruments{
		HLCode:        cfg.Instruments.HL.Code,
		HLName:        cfg.Instruments.HL.Name,
		BenchmarkCode: cfg.Instruments.Benchmark.Code,
		BenchmarkName: cfg.Instruments.Benchmark.Name,
	}, *trajectory)

	switch {
	case *rollback != "":
		err = runRollback(ctx, store, *rollback)
	case *mergeDSN != "":
		err = runMerge(ctx, store, *mergeDSN)
	case *history:
		err = runHistory(ctx, store, console)
	default:
		chain, chainErr := buildChain(cfg, store)
		if chainErr != nil {
			slog.Error("invalid provider configuration", "err", chainErr)
			os.Exit(1)
		}
		p := pipeline.New(pipeline.Config{
			HLCode:         cfg.Instruments.HL.Code,
			BenchmarkCode:  cfg.Instruments.Benchmark.Code,
			Start:          startDate,
			Params:         params,
			Backtest:       *backtest || *csvPath != "",
			BacktestParams: btParams,
		}, chain, store, store, console)

		switch {
		case *collect:
			err = runCollect(ctx, p)
		case *sweep:
			err = runSweep(ctx, p, console, *workers)
		default:
			err = runSignal(ctx, p, *csvPath)
		}
	}

	if err != nil {
		slog.Error("lowvol exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("lowvol finished")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Los logs van a stderr para no mezclarse con las tablas del reporte.
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
