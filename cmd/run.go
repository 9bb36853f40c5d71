package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/supplybot/internal/browser"
	"github.com/example/supplybot/internal/config"
	"github.com/example/supplybot/internal/cookiejar"
	"github.com/example/supplybot/internal/engine"
	"github.com/example/supplybot/internal/notify"
	"github.com/example/supplybot/internal/store"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the booking engine for every configured account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx)
		},
	}
}

func run(ctx context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	portalCfg, err := config.LoadPortal(cfg.PortalFile)
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		st = pg
		log.Info("using postgres store")
	} else {
		accounts, err := config.LoadSupplies(cfg.SuppliesFile)
		if err != nil {
			return err
		}
		st = store.NewMemory(accounts)
		log.Infow("using in-memory store", "supplies_file", cfg.SuppliesFile)
	}

	hash, block := cfg.CookieKeys()
	jar := cookiejar.New(filepath.Join(cfg.DataDir, "cookies"), hash, block,
		int(portalCfg.Timeouts.CookieTTL.Seconds()))

	var notifier notify.Notifier = notify.Log{Logger: log}
	if cfg.TelegramToken != "" {
		accounts, err := st.Accounts(ctx)
		if err != nil {
			return err
		}
		chats := make(map[string]string, len(accounts))
		for _, a := range accounts {
			if a.ChatID != "" {
				chats[a.ID] = a.ChatID
			}
		}
		notifier = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, chats, log)
		log.Info("telegram notifications enabled")
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("metrics listener failed", "error", err)
			}
		}()
		defer func() { _ = srv.Close() }()
		log.Infow("metrics listening", "addr", cfg.MetricsAddr)
	}

	rt, err := browser.NewRuntime(cfg.Headless)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	orch := engine.NewOrchestrator(engine.Deps{
		Launcher: rt,
		Store:    st,
		Jar:      jar,
		Notify:   notifier,
		Portal:   portalCfg,
		Options: engine.Options{
			AutoCommit:             cfg.AutoCommit,
			MaxCalendarPolls:       cfg.MaxCalendarPolls,
			CalendarReopenFallback: cfg.CalendarReopenFallback,
		},
		Log: log,
	})
	return orch.Run(ctx)
}
