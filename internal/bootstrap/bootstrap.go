package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"moneyrates-service/internal/application"
	"moneyrates-service/internal/config"
	"moneyrates-service/internal/infrastructure/httpx"
	"moneyrates-service/internal/infrastructure/logx"
	"moneyrates-service/internal/infrastructure/pg"
	"moneyrates-service/internal/infrastructure/provider"
	redisstore "moneyrates-service/internal/infrastructure/redis"
	"moneyrates-service/internal/infrastructure/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App aggregates the wired service graph for one process.
type App struct {
	Cfg      config.Config
	Log      *zap.Logger
	DB       *pg.DB
	Redis    *redis.Client
	Hub      *ws.Hub
	Bus      *redisstore.Bus
	Items    *application.ItemService
	Poller   *application.Poller
	Consumer *application.BusConsumer
}

// NewApp builds the full graph for the API process: storage, bus, live hub,
// CRUD service, pipeline. The returned cleanup closes the pool and the redis
// client.
func NewApp(ctx context.Context) (*App, func(), error) {
	return build(ctx, true)
}

// NewWorkerApp builds the headless poller graph: no live hub, fan-out goes
// to the bus only.
func NewWorkerApp(ctx context.Context) (*App, func(), error) {
	return build(ctx, false)
}

func build(ctx context.Context, withHub bool) (*App, func(), error) {
	log := logx.L()
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		return nil, func() {}, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect pg: %w", err)
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, func() {}, fmt.Errorf("run migrations: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cleanup := func() {
		log.Info("closing pg and redis")
		_ = rdb.Close()
		db.Close()
	}

	repo := pg.NewItemRepo(db)
	uow := &pg.UnitOfWork{Pool: db.Pool}
	bus := redisstore.NewBus(rdb, log)

	var hub *ws.Hub
	var subs application.Subscribers
	wait := cfg.SubscriberWait
	if withHub {
		hub = ws.NewHub(log)
		subs = hub
	} else {
		wait = 0
	}

	fanout := application.NewFanout(subs, bus, cfg.UpdatesTopic, wait, log)
	writer := application.NewRateWriter(repo, uow, cfg.CryptoCodes, log)

	fiat := &provider.CBRProvider{
		BaseURL:   cfg.CBRURL,
		UserAgent: cfg.UserAgent,
		Watch:     cfg.WatchCurrencies,
		Source:    cfg.CBRSource,
		Client:    &http.Client{Timeout: cfg.FetchTimeout},
		Cache:     redisstore.NewRateCache(rdb, cfg.RateCacheTTL),
		Log:       log,
	}
	crypto := &provider.BinanceProvider{
		BaseURL:     cfg.BinanceURL,
		Symbols:     cfg.CryptoCodes,
		QuoteTicker: cfg.CryptoQuote,
		Source:      cfg.CryptoSource,
		Client: &httpx.Client{
			HTTP:      &http.Client{Timeout: cfg.FetchTimeout},
			UserAgent: cfg.UserAgent,
		},
		Log: log,
	}

	poller := application.NewPoller(fiat, crypto, writer, fanout, application.PollerConfig{
		Interval:         cfg.PollInterval,
		BaseCode:         cfg.BaseCode,
		FallbackBaseRate: cfg.FallbackBaseRate,
	}, log)

	app := &App{
		Cfg:      cfg,
		Log:      log,
		DB:       db,
		Redis:    rdb,
		Hub:      hub,
		Bus:      bus,
		Items:    application.NewItemService(repo, fanout),
		Poller:   poller,
		Consumer: application.NewBusConsumer(repo, subs, log),
	}
	return app, cleanup, nil
}
