package main

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"YieldFarm/internal/api"
	"YieldFarm/internal/config"
	"YieldFarm/internal/farm"
	"YieldFarm/internal/model"
	"YieldFarm/internal/notifier"
	"YieldFarm/internal/oracle"
	"YieldFarm/internal/recorder"
	"YieldFarm/internal/scheduler"
	"YieldFarm/internal/token"
	"YieldFarm/internal/valuation"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

func main() {
	boot, _ := zap.NewProduction()
	zap.ReplaceGlobals(boot)

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		zap.S().Fatalw("load config", "err", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		zap.S().Fatalw("init logger", "err", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	log := logger.Sugar()
	log.Info("yield farm starting")

	if err := cfg.Validate(); err != nil {
		log.Fatalw("config validation", "err", err)
	}

	tokens, feeds := buildDevnet(cfg)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warnw("init sqlite recorder failed, using noop", "err", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init farm
	policy, err := valuation.ParsePolicy(cfg.Farm.MissingFeedPolicy)
	if err != nil {
		log.Fatalw("missing feed policy", "err", err)
	}
	factor, _ := cfg.ConversionFactor()
	f, err := farm.New(farm.Options{
		Owner:              common.HexToAddress(cfg.Farm.Owner),
		Custody:            common.HexToAddress(cfg.Farm.Custody),
		RewardAsset:        common.HexToAddress(cfg.Farm.RewardAsset),
		ConversionFactor:   factor,
		RewardMode:         model.RewardMode(cfg.Farm.RewardMode),
		CommonDecimals:     cfg.Farm.CommonDecimals,
		MissingFeedPolicy:  policy,
		RequireActiveStake: cfg.Farm.RequireActiveStake,
		StateFile:          cfg.Farm.StateFile,
	}, tokens, feeds, rec)
	if err != nil {
		log.Fatalw("init farm", "err", err)
	}
	if err := applyAssets(f, cfg); err != nil {
		log.Fatalw("configure assets", "err", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init notifier
	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	}

	// Init scheduler
	display := scheduler.Display{ValueDecimals: cfg.Farm.CommonDecimals}
	if l, err := tokens.Lookup(f.RewardAsset()); err == nil {
		display.RewardSymbol, display.RewardDecimals = l.Symbol(), l.Decimals()
	}
	sched := scheduler.NewScheduler(ctx, f, n, display)
	if err := sched.RegisterAll(cfg.Schedule.IssuanceCron); err != nil {
		log.Fatalw("register cron tasks", "err", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	// Start HTTP API
	var limiter *api.RateLimiter
	if cfg.HTTP.RateLimit > 0 {
		limiter = api.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.Burst)
		limiter.StartCleanup(ctx, 10*time.Minute)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           api.NewServer(f, rec, limiter).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("http api listening", "addr", cfg.HTTP.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("http api stopped", "err", err)
		}
	}()

	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, issuing rewards now")
		go sched.RunIssuanceNow()
	}

	log.Infow("yield farm is running", "owner", f.Owner().Hex(), "stakers", f.StakerCount())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}
	cancel()
	log.Info("yield farm stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// buildDevnet creates in-process ledgers and feeds for every configured asset
// and applies the configured grants.
func buildDevnet(cfg *config.Config) (*token.Directory, *oracle.Directory) {
	log := zap.S()
	tokens := token.NewDirectory()
	feeds := oracle.NewDirectory()
	ledgers := make(map[common.Address]*token.MemLedger)

	for _, a := range cfg.Assets {
		addr := common.HexToAddress(a.Address)
		symbol := a.Symbol
		if symbol == "" {
			symbol = addr.Hex()[:8]
		}
		l := token.NewMemLedger(symbol, a.AssetDecimals())
		tokens.Register(addr, l)
		ledgers[addr] = l

		if a.Feed == nil {
			continue
		}
		handle := common.HexToAddress(a.Feed.Address)
		if a.Feed.URL != "" {
			feeds.Register(handle, oracle.NewHTTPFeed(a.Feed.URL, a.Feed.APIKey, a.Feed.PricePath, a.Feed.FeedDecimals(), cfg.Proxy))
		} else {
			price, _ := new(big.Int).SetString(a.Feed.StaticPrice, 10)
			feeds.Register(handle, oracle.NewMockFeed(price, a.Feed.FeedDecimals()))
		}
		log.Infow("price feed registered", "asset", symbol, "feed", handle.Hex(), "url", a.Feed.URL)
	}

	reward := common.HexToAddress(cfg.Farm.RewardAsset)
	if _, ok := ledgers[reward]; !ok {
		l := token.NewMemLedger("RWD", 18)
		tokens.Register(reward, l)
		ledgers[reward] = l
	}

	custody := common.HexToAddress(cfg.Farm.Custody)
	for _, g := range cfg.Devnet.Grants {
		l, ok := ledgers[common.HexToAddress(g.Asset)]
		if !ok {
			log.Warnw("grant for unknown asset skipped", "asset", g.Asset)
			continue
		}
		account := common.HexToAddress(g.Account)
		amount, _ := new(big.Int).SetString(g.Amount, 10)
		l.Mint(account, amount)
		if g.ApproveCustody {
			if err := l.Approve(context.Background(), account, custody, amount); err != nil {
				log.Warnw("approve custody", "account", g.Account, "err", err)
			}
		}
	}
	return tokens, feeds
}

// applyAssets brings the registry in line with the configured assets. Both
// operations are idempotent, so this runs on every start.
func applyAssets(f *farm.Farm, cfg *config.Config) error {
	owner := f.Owner()
	for _, a := range cfg.Assets {
		addr := common.HexToAddress(a.Address)
		if a.Allowed && !f.IsAllowed(addr) {
			if err := f.AddAllowedAsset(owner, addr); err != nil {
				return err
			}
		}
		if a.Feed == nil {
			continue
		}
		feed := common.HexToAddress(a.Feed.Address)
		if cur, ok := f.PriceFeedOf(addr); ok && cur == feed {
			continue
		}
		if err := f.SetPriceFeed(owner, addr, feed); err != nil {
			return err
		}
	}
	return nil
}
