// This is the main entry point of the crop advisor application.
// The `serve` command loads configuration, opens the user store and session store,
// loads the trained model artifacts, wires services and handlers into the router and
// serves HTTP until SIGINT/SIGTERM. The `train` command fits a model offline and writes
// the artifacts the server loads at startup.
//
// @title Crop Advisor API
// @version 1.0
// @description Crop recommendations from soil and climate measurements, with session based login.
// @contact.name API Support
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @BasePath /
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name cropadvisor_session
// @description Signed session cookie set by /login
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/cropadvisor-go/artifacts"
	"github.com/user/cropadvisor-go/auth"
	"github.com/user/cropadvisor-go/background"
	"github.com/user/cropadvisor-go/classifier"
	"github.com/user/cropadvisor-go/config"
	"github.com/user/cropadvisor-go/db"
	"github.com/user/cropadvisor-go/logging"
	"github.com/user/cropadvisor-go/recommend"
	"github.com/user/cropadvisor-go/server"
	"github.com/user/cropadvisor-go/trainer"
	"github.com/user/cropadvisor-go/users"
	"github.com/user/cropadvisor-go/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A missing .env is normal in production, where variables are set directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "cropadvisor",
		Usage: "crop recommendation service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server",
				Action: serve,
			},
			{
				Name:  "train",
				Usage: "train the classifier and write model and label encoder artifacts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Usage:   "labeled training CSV",
						Value:   "data/Crop_recommendation.csv",
						EnvVars: []string{"TRAIN_DATA_PATH"},
					},
					&cli.Int64Flag{
						Name:  "seed",
						Usage: "random seed for feature shuffling",
						Value: classifier.DefaultSeed,
					},
				},
				Action: train,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatal().Err(err).Msg("cropadvisor failed")
	}
}

// loadConfig reads the configuration and points the global logger at it.
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})
	return cfg, nil
}

func train(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return trainer.Run(trainer.Options{
		DataPath: c.String("data"),
		Seed:     c.Int64("seed"),
		Out: artifacts.Paths{
			Model:    cfg.Artifacts.ModelPath,
			Encoder:  cfg.Artifacts.EncoderPath,
			CropInfo: cfg.Artifacts.CropInfoPath,
		},
	})
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.With("main")

	if cfg.Auth.SecretKey == config.DefaultSecretKey {
		log.Warn().Msg("SECRET_KEY is not set; using the development key. Do not run like this in production")
	}

	// The model is required: a server that cannot recommend is not worth starting.
	ictx, err := artifacts.Load(artifacts.Paths{
		Model:    cfg.Artifacts.ModelPath,
		Encoder:  cfg.Artifacts.EncoderPath,
		CropInfo: cfg.Artifacts.CropInfoPath,
	})
	if err != nil {
		return err
	}
	log.Info().
		Int("crops", ictx.NumClasses()).
		Int("crop_info_rows", ictx.Crops.Len()).
		Str("trained_on", ictx.Model.Info.Source).
		Msg("model loaded")

	userRepo, closeUsers, err := openUserRepository(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer closeUsers()

	sessionStore, closeSessions, err := openSessionStore(cfg.Auth)
	if err != nil {
		return err
	}
	defer closeSessions()

	sweeper := background.StartSessionSweeper(sessionStore, background.DefaultSweepInterval)
	defer sweeper.Stop()

	// Manual dependency injection: services get their stores, handlers get their services.
	sessions := auth.NewSessionManager(sessionStore, cfg.Auth)
	authHandlers := auth.NewHandlers(auth.NewAuthService(userRepo, cfg.Auth), sessions)
	userHandlers := users.NewUserHandlers(users.NewUserService(userRepo))
	recommendHandlers := recommend.NewHandlers(recommend.NewService(ictx))
	pages, err := web.NewPages()
	if err != nil {
		return err
	}

	router := server.NewRouter(server.Deps{
		Config:    cfg,
		Sessions:  sessions,
		Auth:      authHandlers,
		Users:     userHandlers,
		Recommend: recommendHandlers,
		Pages:     pages,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}

// openUserRepository picks PostgreSQL when DATABASE_URL is set and the local SQLite file
// otherwise.
func openUserRepository(ctx context.Context, cfg *config.DatabaseConfig) (auth.UserRepository, func(), error) {
	log := logging.With("main")

	if cfg.UsesPostgres() {
		if err := db.RunMigrations(cfg.URL, cfg.MigrationsPath); err != nil {
			return nil, nil, err
		}
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("using PostgreSQL user store")
		return auth.NewPostgresUserRepository(pool), pool.Close, nil
	}

	gdb, err := db.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	repo, err := auth.NewGormUserRepository(gdb)
	if err != nil {
		_ = db.CloseSQLite(gdb)
		return nil, nil, err
	}
	log.Info().Str("path", cfg.SQLitePath).Msg("DATABASE_URL not set, using SQLite user store")
	closeFn := func() {
		if err := db.CloseSQLite(gdb); err != nil {
			log.Warn().Err(err).Msg("closing SQLite")
		}
	}
	return repo, closeFn, nil
}

// sweepableStore is a session store the background sweeper can clean.
type sweepableStore interface {
	auth.SessionStore
	background.Sweeper
}

func openSessionStore(cfg *config.AuthConfig) (sweepableStore, func(), error) {
	if cfg.SessionStore != config.SessionStoreBadger {
		return auth.NewMemorySessionStore(), func() {}, nil
	}

	bdb, err := auth.OpenBadger(cfg.SessionBadgerDir)
	if err != nil {
		return nil, nil, err
	}
	log := logging.With("main")
	log.Info().Str("dir", cfg.SessionBadgerDir).Msg("using badger session store")
	closeFn := func() {
		if err := bdb.Close(); err != nil {
			log.Warn().Err(err).Msg("closing session store")
		}
	}
	return auth.NewBadgerSessionStore(bdb), closeFn, nil
}
