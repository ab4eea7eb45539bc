package cli

import (
	"context"
	"fmt"
	"strconv"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/realtime"
	"storefront/internal/server"
	"storefront/pkg/rabbitmq"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, db)
		},
	}
}

// serve starts the API and its optional Redis and RabbitMQ integrations and
// blocks until a termination signal has been handled.
func serve(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	hub := realtime.NewHub()
	go hub.Run(hubCtx)

	deps := server.Deps{
		DB:     db,
		Config: cfg,
		Hub:    hub,
		Events: hub,
	}
	operations := map[string]gfshutdown.Operation{}

	if cfg.RedisEnabled() {
		addr := cfg.RedisHost + ":" + strconv.Itoa(cfg.RedisPort)
		client, err := cache.NewClient(ctx, addr, cfg.RedisPassword)
		if err != nil {
			stopHub()
			return err
		}
		deps.Cache = cache.New(client, "storefront:", cfg.CacheTTL)
		storage := middleware.NewRedisStorage(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		deps.LimiterStorage = storage
		operations["redis"] = func(context.Context) error {
			if err := storage.Close(); err != nil {
				return err
			}
			return client.Close()
		}
		log.Info().Str("addr", addr).Msg("redis cache and rate limit storage enabled")
	}

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			stopHub()
			return err
		}
		deps.Events = mq
		// Events round-trip through the broker so every instance's live feed sees them.
		if err := mq.ConsumeOrderEvents(hubCtx, func(ctx context.Context, event models.OrderEvent) error {
			return hub.Broadcast(ctx, event)
		}); err != nil {
			_ = mq.Close()
			stopHub()
			return err
		}
		operations["rabbitmq"] = func(context.Context) error { return mq.Close() }
	} else {
		log.Info().Msg("RABBITMQ_URL not set, order events are broadcast in-process")
	}

	if cfg.StripeSecretKey != "" {
		deps.Gateway = payment.NewStripeGateway(cfg.StripeSecretKey, nil)
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, card payments are disabled")
	}

	app, err := server.New(deps)
	if err != nil {
		stopHub()
		return err
	}

	operations["http"] = func(ctx context.Context) error {
		return app.ShutdownWithContext(ctx)
	}
	operations["realtime"] = func(context.Context) error {
		stopHub()
		hub.Wait()
		return nil
	}
	operations["database"] = func(context.Context) error {
		return database.Close(db)
	}

	go func() {
		log.Info().Str("addr", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := app.Listen(cfg.Port); err != nil {
			log.Error().Err(err).Msg("server stopped listening")
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, operations)
	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("server gracefully stopped")
	if exitCode != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", exitCode)
	}
	return nil
}
