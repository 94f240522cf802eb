package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ngochieu276/slack-clone/internal/app"
	"github.com/ngochieu276/slack-clone/internal/blob"
	"github.com/ngochieu276/slack-clone/internal/config"
	"github.com/ngochieu276/slack-clone/internal/logger"
	"github.com/ngochieu276/slack-clone/internal/search"
	"github.com/ngochieu276/slack-clone/internal/session"
	"github.com/ngochieu276/slack-clone/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("config load failed")
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, os.DirFS(cfg.MigrationsDir))
	if err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}
	if len(applied) > 0 {
		log.Info().Strs("versions", applied).Msg("migrations applied")
	}

	deps := app.Deps{
		Store:  store.NewPostgresStore(db),
		Logger: log,
	}

	if cfg.RedisURL != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL, cfg.PresenceTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
	} else {
		log.Warn().Msg("REDIS_URL not set, presence and logout revocation disabled")
	}

	if cfg.MinioEndpoint != "" {
		resolver, err := blob.NewMinioResolver(blob.Options{
			Endpoint:         cfg.MinioEndpoint,
			AccessKey:        cfg.MinioAccessKey,
			SecretKey:        cfg.MinioSecretKey,
			Bucket:           cfg.MinioBucket,
			Region:           cfg.MinioRegion,
			UseSSL:           cfg.MinioUseSSL,
			PresignTTL:       cfg.PresignTTL,
			DefaultAvatarURL: cfg.DefaultAvatar,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("blob storage setup failed")
		}
		deps.Blobs = resolver
	}

	var engine search.Engine
	if cfg.MeiliURL != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log)
		defer meiliClient.Close()
		engine = meiliClient
	}
	searchService := search.NewService(engine, search.NewPgFTS(db), log)
	deps.Search = searchService
	go searchService.ReindexAll(ctx)

	service := app.New(cfg, deps)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, log)
	server := newServer(cfg.Addr, httpServer.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("service", cfg.ServiceName).Msg("api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("api stopped")
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
