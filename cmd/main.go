package main

import (
	"context"
	"fmt"

	"github.com/cristianortiz/bidstream/internal/auction/application"
	"github.com/cristianortiz/bidstream/internal/auction/domain"
	"github.com/cristianortiz/bidstream/internal/auction/infra/fanout"
	auctionhttp "github.com/cristianortiz/bidstream/internal/auction/infra/http"
	"github.com/cristianortiz/bidstream/internal/auction/infra/repository/postgres"
	auctionws "github.com/cristianortiz/bidstream/internal/auction/infra/websocket"
	"github.com/cristianortiz/bidstream/internal/shared/clock"
	"github.com/cristianortiz/bidstream/internal/shared/config"
	"github.com/cristianortiz/bidstream/internal/shared/db"
	"github.com/cristianortiz/bidstream/internal/shared/db/migrations"
	"github.com/cristianortiz/bidstream/internal/shared/httpserver"
	"github.com/cristianortiz/bidstream/internal/shared/logger"
	"github.com/cristianortiz/bidstream/internal/shared/scheduler"
	"github.com/cristianortiz/bidstream/internal/shared/websocket"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting bidstream server...")

	cfg := config.Load()

	log.Info("Running database migrations...")
	if err := migrations.RunMigrations(); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.GetPostgresDBPool(ctx)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer pool.Close()

	// websocket hub, one goroutine owns the topic registry
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// fan-out: local hub always, redis mirror and jetstream archive when
	// configured
	publishers := []domain.EventPublisher{fanout.NewHubPublisher(hub)}
	if cfg.RedisAddr != "" {
		redisPub, err := fanout.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		defer redisPub.Close()
		publishers = append(publishers, redisPub)

		bridge, err := fanout.NewRedisBridge(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, hub)
		if err != nil {
			log.Fatal("Redis bridge connection failed", zap.Error(err))
		}
		defer bridge.Close()
		go func() {
			if err := bridge.Listen(ctx); err != nil && ctx.Err() == nil {
				log.Error("Redis bridge stopped", zap.Error(err))
			}
		}()
	}
	if cfg.NATSURL != "" {
		archiver, err := fanout.NewJetStreamArchiver(cfg.NATSURL)
		if err != nil {
			log.Fatal("NATS connection failed", zap.Error(err))
		}
		defer archiver.Close()
		publishers = append(publishers, archiver)
	}
	publisher := fanout.NewComposite(publishers...)

	auctionRepo := postgres.NewAuctionRepository(pool)
	bidRepo := postgres.NewBidRepository(pool)
	extRepo := postgres.NewExtensionRepository(pool)

	locks := application.NewLockRegistry()
	sequencer := application.NewSequencer()
	pressure := domain.NewPressureBook()
	clk := clock.System()

	submitBidUC := application.NewSubmitBidUseCase(auctionRepo, bidRepo, extRepo, pool, locks, sequencer, publisher, pressure, clk)
	stateUC := application.NewGetAuctionStateUseCase(auctionRepo, bidRepo, pressure, clk)
	lifecycleUC := application.NewLifecycleUseCase(auctionRepo, pool, locks, sequencer, publisher, pressure, clk)
	auctionService := application.NewAuctionService(submitBidUC, stateUC, lifecycleUC)

	// lifecycle sweeper, scheduled->active and active->ended transitions
	sweeper := application.NewLifecycleSweeper(auctionRepo, pool, locks, sequencer, publisher, pressure, clk)
	runner := scheduler.New(ctx)
	if _, err := runner.Add(fmt.Sprintf("@every %s", cfg.SweepInterval), sweeper.Sweep); err != nil {
		log.Fatal("Failed to schedule lifecycle sweep", zap.Error(err))
	}
	runner.Start()
	defer runner.Stop()

	wsHandler := auctionws.NewAuctionWSHandler(auctionService, hub)
	go wsHandler.ListenForMessages(ctx)

	server := httpserver.NewServer()
	app := server.App()

	auctionhttp.NewAuctionHTTPHandler(auctionService, cfg.DefaultAutoExtendWindow).RegisterRoutes(app)
	app.Use("/ws", wsHandler.UpgradeMiddleware())
	app.Get("/ws/auctions/:auctionID", wsHandler.HandleConnection(ctx))

	if err := server.Start(cfg.HTTPAddr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
