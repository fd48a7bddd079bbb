package cmd

import (
	"context"
	"fmt"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/pricewatch/internal/alert"
	"github.com/JakeFAU/pricewatch/internal/archive"
	archivegcs "github.com/JakeFAU/pricewatch/internal/archive/gcs"
	archivelocal "github.com/JakeFAU/pricewatch/internal/archive/local"
	"github.com/JakeFAU/pricewatch/internal/config"
	"github.com/JakeFAU/pricewatch/internal/events"
	"github.com/JakeFAU/pricewatch/internal/events/sinks"
	"github.com/JakeFAU/pricewatch/internal/fetch"
	"github.com/JakeFAU/pricewatch/internal/history"
	"github.com/JakeFAU/pricewatch/internal/logging"
	"github.com/JakeFAU/pricewatch/internal/notify"
	notifypubsub "github.com/JakeFAU/pricewatch/internal/notify/pubsub"
	"github.com/JakeFAU/pricewatch/internal/pipeline"
	"github.com/JakeFAU/pricewatch/internal/scan"
	"github.com/JakeFAU/pricewatch/internal/stats"
	"github.com/JakeFAU/pricewatch/internal/store"
	storememory "github.com/JakeFAU/pricewatch/internal/store/memory"
	storepostgres "github.com/JakeFAU/pricewatch/internal/store/postgres"
)

// app holds every long-lived service the commands share. It is built
// once per invocation and torn down in reverse order by Close.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	hub      *events.Hub
	pipeline *pipeline.Pipeline
	scanner  *scan.Scanner

	closers []func(context.Context) error
}

// newApp is a factory variable so tests can swap in a stub.
var newApp = buildApp

func buildApp(ctx context.Context, cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	st, err := a.buildStore(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		return nil, err
	}
	archiver, err := a.buildArchiver(ctx)
	if err != nil {
		return nil, err
	}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init metrics sink: %w", err)
	}
	a.hub = events.NewHub(events.Config{
		BaseContext: ctx,
		Logger:      logger.Named("events"),
	}, sinks.NewLogSink(logger.Named("audit")), promSink)
	a.closers = append(a.closers, a.hub.Close)

	a.pipeline, err = pipeline.New(pipeline.Config{
		Store:    st,
		Notifier: notifier,
		Emitter:  a.hub,
		Logger:   logger.Named("pipeline"),
		Ledger: history.Ledger{
			MaxEntries:  cfg.History.MaxEntries,
			MinInterval: cfg.MinAppendInterval(),
			Epsilon:     cfg.History.PriceEpsilon,
		},
		Stats: stats.Engine{
			OverMinPct: cfg.Alerts.OverMinPct,
			OverAvgPct: cfg.Alerts.OverAvgPct,
		},
		Evaluator: alert.Evaluator{
			NearMinPct: cfg.Alerts.NearMinPct,
			MinSamples: alert.DefaultMinSamples,
		},
		MaxAlertLog:   cfg.Alerts.MaxLog,
		DisableAlerts: !cfg.Alerts.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	fetcher, err := a.buildFetcher()
	if err != nil {
		return nil, err
	}

	a.scanner, err = scan.New(scan.Config{
		Pipeline: a.pipeline,
		Fetcher:  fetcher,
		Limiter: scan.NewLimiter(scan.LimiterConfig{
			DefaultRPS: cfg.Scan.PerHostRPS,
		}),
		Archiver: archiver,
		Emitter:  a.hub,
		Logger:   logger.Named("scan"),
		Workers:  cfg.Scan.Concurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("init scanner: %w", err)
	}

	return a, nil
}

func (a *app) buildStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Store.Backend {
	case "postgres":
		st, err := storepostgres.New(ctx, storepostgres.Config{DSN: a.cfg.Store.DSN})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			st.Close()
			return nil
		})
		return st, nil
	default:
		return storememory.New(), nil
	}
}

func (a *app) buildNotifier(ctx context.Context) (notify.Notifier, error) {
	switch a.cfg.Notify.Backend {
	case "pubsub":
		n, err := notifypubsub.New(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.Topic)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			return n.Close()
		})
		return n, nil
	default:
		return notify.NewLogNotifier(a.logger.Named("notify")), nil
	}
}

func (a *app) buildArchiver(ctx context.Context) (*archive.Archiver, error) {
	switch a.cfg.Archive.Backend {
	case "local":
		bs, err := archivelocal.New(archivelocal.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return archive.NewWithPrefix(bs, a.cfg.Archive.Prefix)
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			return client.Close()
		})
		bs, err := archivegcs.New(client, archivegcs.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return archive.NewWithPrefix(bs, a.cfg.Archive.Prefix)
	default:
		return nil, nil
	}
}

func (a *app) buildFetcher() (fetch.Fetcher, error) {
	static := fetch.NewColly(fetch.CollyConfig{
		UserAgent: a.cfg.Fetch.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
	})
	if !a.cfg.Headless.Enabled {
		return static, nil
	}

	headless, err := fetch.NewHeadless(fetch.HeadlessConfig{
		MaxParallel:       a.cfg.Headless.MaxParallel,
		UserAgent:         a.cfg.Fetch.UserAgent,
		NavigationTimeout: a.cfg.NavTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		headless.Close()
		return nil
	})
	detector := fetch.NewDetector(a.cfg.Headless.PromotionThresh)
	return fetch.NewPromoted(static, headless, detector, a.logger.Named("fetch")), nil
}

// Close tears services down in reverse construction order.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
