package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boardcheck/internal/config"
	"github.com/ukydev/boardcheck/internal/logging"
	"github.com/ukydev/boardcheck/internal/notify"
	"github.com/ukydev/boardcheck/internal/redisclient"
	"github.com/urfave/cli/v2"
)

const (
	notifyPrefetch  = 100
	notifyBatchSize = 20
	notifyPoll      = time.Second
	notifyTimeout   = 5 * time.Second
)

func notifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Guardian notification worker",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Consume boarding notifications from the Redis queue",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if !cfg.Redis.Enabled() {
						return cli.Exit("REDIS_ADDRESS is required for the notification worker", 1)
					}
					logger := log.NewEntry(logging.New(cfg.Logging)).WithField("component", "notify-worker")

					client, err := redisclient.Connect(c.Context, cfg.Redis)
					if err != nil {
						return err
					}
					defer client.Close()

					errs := make(chan error, 10)
					go func() {
						for err := range errs {
							logger.WithError(err).Warn("Queue error")
						}
					}()

					conn, queue, err := redisclient.OpenQueue(client, cfg.Redis.NotifyQueue, errs)
					if err != nil {
						return err
					}
					if err := queue.StartConsuming(notifyPrefetch, notifyPoll); err != nil {
						return err
					}
					if _, err := queue.AddBatchConsumer("guardian-sms", notifyBatchSize, notifyTimeout, notify.NewBatchConsumer(notify.NewLogSender(logger), logger)); err != nil {
						return err
					}
					logger.WithField("queue", cfg.Redis.NotifyQueue).Info("Consuming notifications")

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)
					select {
					case <-signals:
					case <-c.Context.Done():
					}

					<-conn.StopAllConsuming()
					logger.Info("Notification worker stopped")
					return nil
				},
			},
		},
	}
}
