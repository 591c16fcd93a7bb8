package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/lowvolsignal/config"
	"github.com/alejandrodnm/lowvolsignal/internal/adapters/eastmoney"
	"github.com/alejandrodnm/lowvolsignal/internal/adapters/notify"
	"github.com/alejandrodnm/lowvolsignal/internal/adapters/storage"
	"github.com/alejandrodnm/lowvolsignal/internal/adapters/synthetic"
	"github.com/alejandrodnm/lowvolsignal/internal/application/pipeline"
	"github.com/alejandrodnm/lowvolsignal/internal/domain"
	"github.com/alejandrodnm/lowvolsignal/internal/ports"
)

// buildChain arma la cadena de fuentes en el orden configurado.
func buildChain(cfg *config.Config, store ports.PriceStore) (*pipeline.Chain, error) {
	em := cfg.Providers.Eastmoney
	sources := make([]pipeline.Source, 0, len(cfg.Providers.Order))

	for _, name := range cfg.Providers.Order {
		switch name {
		case "eastmoney":
			adj, err := eastmoney.ParseAdjust(em.Adjust)
			if err != nil {
				return nil, err
			}
			sources = append(sources, pipeline.Source{
				Provider: eastmoney.NewClient(em.BaseURL, em.RatePerSec, adj),
				Persist:  true,
			})
		case "fallback":
			hl := cfg.Instruments.HL
			if hl.FallbackCode == "" {
				slog.Debug("fallback source skipped: no fallback_code", "code", hl.Code)
				continue
			}
			adj, err := eastmoney.ParseAdjust(em.FallbackAdjust)
			if err != nil {
				return nil, err
			}
			// Serie con otro ajuste: no se mezcla con las barras guardadas.
			sources = append(sources, pipeline.Source{
				Provider:    eastmoney.NewClient(em.BaseURL, em.RatePerSec, adj),
				Substitutes: map[string]string{hl.Code: hl.FallbackCode},
			})
		case "store":
			sources = append(sources, pipeline.Source{Provider: storage.NewStoreProvider(store)})
		case "synthetic":
			sources = append(sources, pipeline.Source{Provider: synthetic.New(cfg.Providers.Seed, nil)})
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return pipeline.NewChain(sources...), nil
}

func runSignal(ctx context.Context, p *pipeline.Pipeline, csvPath string) error {
	out, err := p.Run(ctx)
	if err != nil {
		return err
	}
	if csvPath == "" {
		return nil
	}
	if out.Result == nil {
		slog.Warn("no backtest result, CSV not written", "path", csvPath)
		return nil
	}
	if err := notify.WriteCheckpointsCSVFile(csvPath, out.Result.Checkpoints); err != nil {
		return err
	}
	slog.Info("checkpoints written", "path", csvPath, "rows", len(out.Result.Checkpoints))
	return nil
}

func runCollect(ctx context.Context, p *pipeline.Pipeline) error {
	n, err := p.Collect(ctx)
	if err != nil {
		return err
	}
	slog.Info("collect complete", "bars_saved", n)
	return nil
}

func runSweep(ctx context.Context, p *pipeline.Pipeline, console *notify.Console, workers int) error {
	start := time.Now()
	results, err := p.Sweep(ctx, pipeline.DefaultGrid(), workers)
	if err != nil {
		return err
	}
	console.PrintSweep(results)
	slog.Info("sweep complete", "results", len(results), "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func runHistory(ctx context.Context, store storage.Store, console *notify.Console) error {
	runs, err := store.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	console.PrintRuns(runs)

	counts, err := store.DateCounts(ctx, 10)
	if err != nil {
		return err
	}
	console.PrintDateCounts(counts)
	return nil
}

func runRollback(ctx context.Context, store ports.PriceStore, date string) error {
	d, n, err := storage.Rollback(ctx, store, date)
	if err != nil {
		return err
	}
	if d.IsZero() {
		slog.Info("rollback skipped: store is empty")
		return nil
	}
	slog.Info("rollback complete", "date", d.Format(domain.DateLayout), "rows_deleted", n)
	return nil
}

func runMerge(ctx context.Context, dst ports.PriceStore, srcDSN string) error {
	src, err := storage.NewSQLiteStorage(srcDSN)
	if err != nil {
		return err
	}
	defer src.Close()

	n, err := storage.Merge(ctx, dst, src)
	if err != nil {
		return err
	}
	slog.Info("merge complete", "source", srcDSN, "bars", n)
	return nil
}
