package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/config"
	"github.com/minaret-home/minaret/internal/db"
	"github.com/minaret-home/minaret/internal/hass"
	"github.com/minaret-home/minaret/internal/playback"
	"github.com/minaret-home/minaret/internal/redis"
	"github.com/minaret-home/minaret/internal/storage"
	"github.com/minaret-home/minaret/internal/upstream"
	"github.com/minaret-home/minaret/internal/view"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	env := LoadEnvironment()

	if env.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// initialize PostgreSQL
	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}

	// run pending migrations
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}
	store := db.NewStore()

	redis.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword)

	var storageSystem storage.Storage
	if env.UseSpaces {
		storageSystem, err = storage.NewSpacesStorage(
			env.SpacesEndpoint,
			env.SpacesRegion,
			env.SpacesBucket,
			env.SpacesCDNURL,
			env.SpacesAccessKey,
			env.SpacesSecretKey,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Spaces storage")
		}
	} else {
		storageSystem = storage.NewLocalStorage(env.AudioCacheDir, env.AudioBaseURL)
	}

	mqttClient, err := hass.NewClient(env.MQTTBroker, env.MQTTClientID, cfg.EntityPrefix)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MQTT")
	}
	defer mqttClient.Close()

	player := playback.NewController(cfg, storageSystem, mqttClient)
	coordinator := upstream.NewCoordinator(cfg, upstream.NewSource(cfg), store, mqttClient, player)
	mqttClient.SetCommandHandler(coordinator)

	liveView := view.NewLiveView(view.LogRenderer{})
	mqttClient.AddSink(liveView)
	liveView.Attach()
	defer liveView.Detach()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go coordinator.Run(ctx)

	r := gin.Default()
	RegisterRoutes(r, env, store, liveView, coordinator, mqttClient)

	srv := &http.Server{Addr: env.ServerAddress, Handler: r}
	go func() {
		log.Info().Str("address", env.ServerAddress).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("db close")
	}
}
