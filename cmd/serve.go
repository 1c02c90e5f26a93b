package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/attendance"
	"github.com/ukydev/boardcheck/internal/auth"
	"github.com/ukydev/boardcheck/internal/binding"
	"github.com/ukydev/boardcheck/internal/config"
	"github.com/ukydev/boardcheck/internal/db"
	"github.com/ukydev/boardcheck/internal/handlers"
	"github.com/ukydev/boardcheck/internal/location"
	"github.com/ukydev/boardcheck/internal/logging"
	"github.com/ukydev/boardcheck/internal/middleware"
	"github.com/ukydev/boardcheck/internal/models"
	"github.com/ukydev/boardcheck/internal/notify"
	"github.com/ukydev/boardcheck/internal/redisclient"
	"github.com/ukydev/boardcheck/internal/reporter"
	"github.com/ukydev/boardcheck/internal/server"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const dispatcherBuffer = 256

// backend bundles the collections of the configured store.
type backend struct {
	riders     db.RiderCollection
	users      db.UserCollection
	attendance db.AttendanceCollection
	audit      db.AuditLog
	health     server.HealthCheck
	close      func(ctx context.Context) error
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the MQTT position subscriber",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "admin-user",
				Usage:   "create this admin account at startup if it does not exist",
				EnvVars: []string{"BOOTSTRAP_ADMIN_USER"},
			},
			&cli.StringFlag{
				Name:    "admin-password",
				EnvVars: []string{"BOOTSTRAP_ADMIN_PASSWORD"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := log.NewEntry(logging.New(cfg.Logging))

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger, c.String("admin-user"), c.String("admin-password"))
		},
	}
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (*backend, error) {
	if cfg.Backend == config.BackendMemory {
		store := db.NewMemory()
		return &backend{
			riders:     store,
			users:      store,
			attendance: store,
			audit:      store,
			close:      func(context.Context) error { return nil },
		}, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	store := db.NewMongo(database)
	return &backend{
		riders:     store.Riders,
		users:      store.Users,
		attendance: store.Attendance,
		audit:      store.Audit,
		health: server.CheckFunc(func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		}),
		close: client.Disconnect,
	}, nil
}

func serve(ctx context.Context, cfg config.Config, logger *log.Entry, adminUser, adminPassword string) error {
	authService, err := auth.NewService(cfg.Auth)
	if err != nil {
		return err
	}

	store, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		if err := store.close(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to close store")
		}
	}()
	logger.WithField("backend", cfg.Store.Backend).Info("Store ready")

	if adminUser != "" {
		err := createStaff(ctx, authService, store.users, staffAccount{
			Username: adminUser,
			Password: adminPassword,
			Role:     models.RoleAdmin,
		})
		switch {
		case err == nil:
			logger.WithField("username", adminUser).Info("Bootstrap admin created")
		case isDuplicate(err):
		default:
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	var checks []server.HealthCheck
	if store.health != nil {
		checks = append(checks, store.health)
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		positions location.Store = location.NewMemoryStore()
		notifier  notify.Notifier
	)
	if cfg.Redis.Enabled() {
		client, err := redisclient.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()

		_, queue, err := redisclient.OpenQueue(client, cfg.Redis.NotifyQueue, nil)
		if err != nil {
			return err
		}
		positions = location.NewRedisStore(client, cfg.Redis.PositionTTL)
		notifier = notify.NewQueueNotifier(queue, logger)
		checks = append(checks, server.CheckFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		logger.WithField("queue", cfg.Redis.NotifyQueue).Info("Using Redis location store and notification queue")
	} else {
		dispatcher := notify.NewDispatcher(notify.NewLogSender(logger), dispatcherBuffer, logger)
		g.Go(func() error { return dispatcher.Run(gctx) })
		notifier = dispatcher
	}

	rep := reporter.New(positions, logger)
	authority := binding.NewAuthority(store.riders, store.audit, logger)
	engine := attendance.NewEngine(store.riders, store.attendance, positions, authority, notifier, logger, attendance.Options{
		MaxPositionAge: cfg.Verification.MaxPositionAge,
		MaxTokenAge:    cfg.Verification.MaxTokenAge,
	})

	router := server.NewRouter(logger, server.RouterDependencies{
		Auth:       middleware.NewAuthMiddleware(authService),
		Login:      handlers.NewAuthHandler(authService, store.users, store.riders, authority, logger),
		Attendance: handlers.NewAttendanceHandler(engine, cfg.Verification.Timezone, logger),
		Vehicles:   handlers.NewVehicleHandler(rep, positions, logger),
		Admin:      handlers.NewAdminHandler(authService, store.riders, authority, store.audit, logger),
		Health:     checks,
	})

	if cfg.MQTT.Broker != "" {
		sub := reporter.NewSubscriber(rep, reporter.SubscriberOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		}, logger)
		g.Go(func() error { return sub.Run(gctx) })
	}

	srv := server.New(logger, cfg.HTTP, router)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
