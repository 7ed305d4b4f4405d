package cmd

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/rustyeddy/propfirm/config"
	"github.com/rustyeddy/propfirm/execution"
	"github.com/rustyeddy/propfirm/journal"
	"github.com/rustyeddy/propfirm/lock"
	"github.com/rustyeddy/propfirm/pricing"
	"github.com/rustyeddy/propfirm/state"
	"github.com/rustyeddy/propfirm/trading"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// app is everything a command needs, built from one Config.
type app struct {
	cfg    *config.Config
	store  journal.Store
	prices pricing.Resolver
	svc    *trading.Service
}

func (a *app) Close() error {
	return a.store.Close()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (journal.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return journal.NewSQLite(cfg.Storage.Path)
	case "postgres":
		return journal.NewPostgres(ctx, cfg.Storage.DSN)
	case "memory":
		return journal.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func newResolver(cfg *config.Config) (pricing.Resolver, error) {
	var next pricing.Resolver
	switch cfg.Pricing.Source {
	case "binance":
		next = pricing.NewBinance(binance.NewClient("", ""), cfg.Pricing.QuoteAsset)
	case "static":
		s := pricing.NewStatic()
		s.MaxAge = cfg.Pricing.MaxQuoteAge()
		for sym, p := range cfg.Pricing.Quotes {
			if err := s.SetPrice(sym, decimal.NewFromFloat(p)); err != nil {
				return nil, fmt.Errorf("pricing.quotes[%s]: %w", sym, err)
			}
		}
		if cfg.Pricing.QuotesFile != "" {
			n, err := pricing.LoadCSV(cfg.Pricing.QuotesFile, s)
			if err != nil {
				return nil, fmt.Errorf("pricing.quotes_file: %w", err)
			}
			logs.Infof("replayed %d ticks from %s", n, cfg.Pricing.QuotesFile)
		}
		next = s
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.Pricing.Source)
	}
	return pricing.Guard{Next: next, Timeout: cfg.Engine.PriceWait()}, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	plans, err := cfg.PlanSet()
	if err != nil {
		return nil, err
	}
	prices, err := newResolver(cfg)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	engine := execution.New(prices,
		execution.WithSlippage(execution.NewUniform(cfg.Engine.SlippageBand, 0)),
	)
	svc := trading.New(engine, state.NewMemory(), lock.NewRegistry(cfg.Engine.LockWait()), store,
		trading.WithPlans(plans),
		trading.WithStoreTimeout(cfg.Engine.StoreWait()),
	)

	logs.Infof("propfirm: storage=%s pricing=%s slippage_band=%v", cfg.Storage.Driver, cfg.Pricing.Source, cfg.Engine.SlippageBand)
	return &app{cfg: cfg, store: store, prices: prices, svc: svc}, nil
}

// setup loads the config and builds the app in one step.
func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
