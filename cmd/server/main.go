package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/osuAkatsuki/bancho-core/pkg/config"
	"github.com/osuAkatsuki/bancho-core/pkg/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	srv, err := server.New(server.Config{
		Domain:        cfg.Domain,
		MenuIconURL:   cfg.Menu.IconURL,
		MenuClickURL:  cfg.Menu.ClickURL,
		CommandPrefix: cfg.Chat.CommandPrefix,
		BotID:         cfg.Bot.ID,
		BotName:       cfg.Bot.Name,
		IdleThreshold: cfg.Tuning.IdleThreshold,
		NpTimeout:     cfg.Tuning.NpTimeout,
	}, sugar, nil)
	if err != nil {
		sugar.Fatalw("failed to construct server", "error", err)
	}

	seedDefaultChannels(srv)

	e := server.NewHTTPServer(srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runHousekeeping(ctx, srv, cfg.Tuning.HousekeepingTick)

	go func() {
		sugar.Infow("bancho-core listening", "address", cfg.Listen.Address)
		if err := e.Start(cfg.Listen.Address); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("http server stopped unexpectedly", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	sugar.Infow("shutting down", "signal", sig.String())

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("graceful shutdown failed", "error", err)
	}
}

// seedDefaultChannels registers the always-present durable channels every
// osu! client expects on login (§4.C, §4.G bootstrap).
func seedDefaultChannels(srv *server.Server) {
	defaults := []struct {
		name, topic string
	}{
		{"#osu", "General discussion"},
		{"#announce", "Announcements"},
		{"#lobby", "Multiplayer lobby chat"},
	}
	for _, d := range defaults {
		if _, err := srv.Channels.Create(d.name, d.topic, 0, 0, true, false); err != nil {
			srv.Log.Warnw("failed to seed default channel", "channel", d.name, "error", err)
		}
	}
}

// runHousekeeping drives Server.RunHousekeeping on a fixed tick until ctx
// is cancelled (§4.I).
func runHousekeeping(ctx context.Context, srv *server.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			srv.RunHousekeeping(now)
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Production {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err == nil {
		zcfg.Level = level
	}
	return zcfg.Build()
}
