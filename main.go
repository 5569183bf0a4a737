package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Scrimzay/conquestsim/internal/config"
	"github.com/Scrimzay/conquestsim/internal/logs"
	"github.com/Scrimzay/conquestsim/internal/server"
	"github.com/Scrimzay/conquestsim/internal/world"
)

func main() {
	cfgPath := flag.String("config", "", "path to conf.yml (default: search configs/conf.yml upward)")
	flag.Parse()

	cfg, loader, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := logs.Init("conquestsim", cfg.Log); err != nil {
		fmt.Fprintln(os.Stderr, "logs:", err)
		os.Exit(1)
	}
	defer logs.Sync()

	logs.Info("=== STARTING CONQUEST SIM ===", zap.String("config", loader.Path()))
	loader.Watch(func(next config.Config) {
		logs.SetLevel(next.Log.Level)
		logs.Info("config reloaded", zap.String("log_level", logs.Level().String()))
	}, func(err error) {
		logs.Warn("config reload rejected", zap.Error(err))
	})

	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mask, err := loadMask(cfg.Map, seed)
	if err != nil {
		logs.Fatal("land mask", zap.Error(err))
	}

	gameWorld, err := world.NewWorld(mask, world.Options{
		MaxPlayers: cfg.World.MaxPlayers,
		Bots:       cfg.World.Bots,
		Rand:       rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		logs.Fatal("world", zap.Error(err))
	}
	logs.Info("world created",
		zap.Int("width", gameWorld.Grid().Width()),
		zap.Int("height", gameWorld.Grid().Height()),
		zap.Int64("seed", seed),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub, err := server.NewHub(gameWorld.Snapshot)
	if err != nil {
		logs.Fatal("hub", zap.Error(err))
	}
	go hub.Run(ctx)

	onChange := func() {}
	if cfg.World.BroadcastOnCommand {
		onChange = func() { hub.Publish(gameWorld.Snapshot()) }
	}
	dispatcher := server.NewDispatcher(gameWorld, onChange)

	scheduler := world.NewScheduler(gameWorld, cfg.World.TickPeriod(), hub.Publish)
	go scheduler.Run(ctx)

	if !cfg.Log.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.SetupRouter(gameWorld, hub, dispatcher, server.Options{
		CommandsPerSecond: cfg.Server.CommandsPerSecond,
		CommandBurst:      cfg.Server.CommandBurst,
	})

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logs.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logs.Fatal("server failed", zap.Error(err))
	}
	logs.Info("server stopped")
}

func loadMask(cfg config.MapConfig, seed int64) ([][]bool, error) {
	switch cfg.Source {
	case "file":
		return world.LoadMaskFile(cfg.File)
	case "preset":
		return world.Preset(cfg.Preset, cfg.Width, cfg.Height, seed), nil
	default:
		return world.GenerateMask(world.GenConfig{
			Width:    cfg.Width,
			Height:   cfg.Height,
			Seed:     seed,
			SeaLevel: cfg.SeaLevel,
		}), nil
	}
}
