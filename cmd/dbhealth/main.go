package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
	"github.com/joseph-ayodele/blotter-tracker/internal/logging"
	repo "github.com/joseph-ayodele/blotter-tracker/internal/repository"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := repo.Open(ctx, cfg.Database, logging.Init(logging.ModeText, "warn"))
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer store.Close()

	if err := store.HealthCheck(ctx, 2*time.Second); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Printf("DB health: OK (driver=%s)", store.Dialect())

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	records, err := store.CountRecords(ctx)
	if err != nil {
		log.Fatalf("counting records: %v", err)
	}
	_, posts, err := store.ListPosts(ctx, entity.PostFilter{Limit: 1})
	if err != nil {
		log.Fatalf("counting posts: %v", err)
	}
	log.Printf("records: %d  posts: %d", records, posts)

	batches, err := store.ListBatches(ctx, 5)
	if err != nil {
		log.Fatalf("listing blotters: %v", err)
	}
	for _, b := range batches {
		log.Printf(" - %s  %s  %s  %d incidents", b.ID, b.Status, b.Filename, b.IncidentCount)
	}
}
