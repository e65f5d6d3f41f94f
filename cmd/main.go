package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmarkov/user-microservice/config"
	"github.com/dmarkov/user-microservice/internal/container"
	mailinfra "github.com/dmarkov/user-microservice/internal/infrastructure/mailer"
	pginfra "github.com/dmarkov/user-microservice/internal/infrastructure/postgres"
	"github.com/dmarkov/user-microservice/internal/infrastructure/rabbitmq"
	"github.com/dmarkov/user-microservice/internal/interface/middleware"
	"github.com/dmarkov/user-microservice/internal/router"
	"github.com/dmarkov/user-microservice/internal/worker/outbox"
	"github.com/dmarkov/user-microservice/pkg/helpers"
	"github.com/dmarkov/user-microservice/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil && !errors.Is(migrate.ErrNoChange, err) {
		log.Fatalf("migration failed: %v", err)
	}

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetTxScope(pginfra.NewTxScope(pool))

	// Profile-specific collaborators: broker publisher + outbox dispatcher
	// for the event-driven profile, email-service gateway for the sync one.
	switch cfg.Profile {
	case config.ProfileSync:
		notifier := mailinfra.NewNotifier(mailinfra.Config{
			BaseURL:       cfg.EmailServiceURL,
			Timeout:       cfg.EmailServiceTimeout,
			MaxFailures:   cfg.BreakerMaxFailures,
			Cooldown:      cfg.BreakerCooldown,
			MaxRetries:    cfg.NotifyMaxRetries,
			RetryInterval: cfg.NotifyRetryInterval,
		}, logger)
		container.SetNotifier(notifier)

	case config.ProfileEvents:
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserQueue, cfg.PublishTimeout)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer pub.Close()
		container.SetProducer(pub)

		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)

		if addrs := cfg.ESAddrs(); len(addrs) > 0 {
			es, err := elasticsearch.NewClient(elasticsearch.Config{
				Addresses: addrs,
				Username:  cfg.ElasticsearchUser,
				Password:  cfg.ElasticsearchPass,
			})
			if err != nil {
				log.Fatalf("failed to init elasticsearch client: %v", err)
			}
			container.SetES(es)
		}

		dispatcher := outbox.NewDispatcher(
			pginfra.NewOutboxRepository(pool),
			pub,
			cfg.OutboxPollInterval,
			cfg.OutboxBatchSize,
			logger,
		)
		go dispatcher.Run(ctx)

	default:
		log.Fatalf("unknown SERVICE_PROFILE %q (want %q or %q)", cfg.Profile, config.ProfileEvents, config.ProfileSync)
	}

	logger.WithField("profile", cfg.Profile).Info("service profile selected")

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(http.ErrServerClosed, err) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(migrate.ErrNoChange, err) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
