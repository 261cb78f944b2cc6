package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Применяет схему хранилища корзины к PostgreSQL из STOREFRONT_PG_DSN.
func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	dsn := os.Getenv("STOREFRONT_PG_DSN")
	if dsn == "" {
		log.Fatal("STOREFRONT_PG_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close postgres connection")
		}
	}()

	if err := store.EnsureSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to apply schema")
	}

	log.Info("схема применена")
}
