package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/database"
	"github.com/stemsi/qbank-console/internal/logger"
	"github.com/stemsi/qbank-console/internal/repository"
)

func main() {
	limit := flag.Int("limit", 500, "maximum number of rows to report")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	journalRepo := repository.NewJournalRepository(pool)

	fmt.Println("=== Orphaned Child Questions ===")
	fmt.Println("Children accepted by the question service whose parent was never patched with their ids.")

	orphans, err := journalRepo.Orphans(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query submission journal")
	}

	if len(orphans) == 0 {
		fmt.Println("\nNo orphaned children found.")
		return
	}

	// Group by parent so each line can be re-attached in one patch.
	byParent := make(map[string][]string)
	var parents []string
	for _, o := range orphans {
		if _, seen := byParent[o.ParentID]; !seen {
			parents = append(parents, o.ParentID)
		}
		byParent[o.ParentID] = append(byParent[o.ParentID], o.QuestionID)
	}

	fmt.Printf("\nFound %d orphaned children under %d parents:\n\n", len(orphans), len(parents))
	for _, p := range parents {
		fmt.Printf("%s\t%v\n", p, byParent[p])
	}
}
