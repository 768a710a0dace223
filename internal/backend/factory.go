// Package backend constructs the record store collaborator from
// configuration.
package backend

import (
	"context"
	"fmt"

	"carteira/internal/config"
	"carteira/internal/core"
	"carteira/internal/log"
	"carteira/internal/notify"
	"carteira/internal/records"
	"carteira/internal/records/memory"
	"carteira/internal/records/sqlite"
)

// CleanupFunc releases resources held by a created store.
type CleanupFunc func() error

// Result contains the store instance and an optional cleanup function.
type Result struct {
	Store   records.Store
	Cleanup CleanupFunc
}

// CreateStore builds the configured record store. For the sqlite backend
// with AMQP configured it also wires the cross-process change fanout: local
// writes are announced on the exchange, and announcements from other
// processes wake the local subscriptions.
func CreateStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Result, error) {
	logger = logger.WithComponent(log.ComponentBackend)

	switch cfg.DataBackend {
	case "memory":
		logger.Info("initialized memory backend")
		return &Result{Store: memory.New()}, nil

	case "sqlite":
		store, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}

		cleanup := func() error { return store.Close() }

		if cfg.AMQPURL != "" {
			client, err := notify.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Warn("failed to initialize AMQP client, continuing without change fanout",
					log.FieldError, err.Error())
			} else {
				store.SetNotifier(&amqpNotifier{client: client})
				go consumeChanges(ctx, client, store, logger)
				cleanup = func() error {
					storeErr := store.Close()
					if err := client.Close(); err != nil {
						return err
					}
					return storeErr
				}
				logger.Info("initialized AMQP change fanout",
					"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			}
		}

		logger.Info("initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: store, Cleanup: cleanup}, nil

	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

// amqpNotifier adapts the notify client to the store's Notifier port.
type amqpNotifier struct {
	client *notify.Client
}

func (n *amqpNotifier) RecordChanged(ctx context.Context, kind core.Kind, ownerID string) error {
	return n.client.PublishRecordChanged(ctx, notify.NewRecordChangedMessage(kind, ownerID))
}

func consumeChanges(ctx context.Context, client *notify.Client, store *sqlite.Store, logger *log.Logger) {
	logger = logger.WithComponent(log.ComponentNotify)
	err := client.ConsumeRecordChanges(ctx, func(msg *notify.RecordChangedMessage) error {
		return store.NotifyChanged(ctx, msg.Kind, msg.OwnerID)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("record change consumer stopped", log.FieldError, err.Error())
	}
}
