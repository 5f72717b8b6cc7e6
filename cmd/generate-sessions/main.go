package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/lessonloop/api/internal/config"
	"github.com/lessonloop/api/internal/database"
	"github.com/lessonloop/api/internal/generator"
	"github.com/lessonloop/api/internal/store"
)

// Manual/batch front-end over the generator service. Exit code is 0 on
// completion even when individual templates failed: partial failure is
// expected in a batch and reported in the output, not via the exit code.
func main() {
	dateStr := flag.String("date", "", "Generate for one explicit date (YYYY-MM-DD), default today")
	daysAhead := flag.Int("days-ahead", 0, "Generate for today through today+N-1")
	dryRun := flag.Bool("dry-run", false, "Show what would be generated without materializing or logging")
	cleanupLogs := flag.Bool("cleanup-logs", false, "Prune old generation log entries")
	keepDays := flag.Int("keep-days", 30, "Retention window for --cleanup-logs, in days")
	flag.Parse()

	startTime := time.Now()

	date := time.Now()
	if *dateStr != "" {
		parsed, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			log.Println("Invalid date format")
			return
		}
		date = parsed
	}

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	svc := generator.New(store.New(db), generator.Config{})
	ctx := context.Background()

	if *cleanupLogs {
		deleted, err := svc.CleanupLogs(ctx, *keepDays)
		if err != nil {
			log.Fatalf("Failed to clean up logs: %v", err)
		}
		log.Printf("Removed %d log entries older than %d days", deleted, *keepDays)
		if *dateStr == "" && *daysAhead == 0 && !*dryRun {
			return
		}
	}

	if *dryRun {
		preview, err := svc.PreviewForDate(ctx, date)
		if err != nil {
			log.Fatalf("Failed to build preview: %v", err)
		}
		log.Printf("[DRY RUN] %s: would generate %d, would skip %d",
			preview.Date.Format("2006-01-02"), preview.WouldGenerate, preview.WouldSkip)
		for _, tpl := range preview.Templates {
			if tpl.Reason != "" {
				log.Printf("  %s (%s): %s (%s)", tpl.Title, tpl.TemplateID, tpl.Outcome, tpl.Reason)
			} else {
				log.Printf("  %s (%s): %s, %d students across %d groups",
					tpl.Title, tpl.TemplateID, tpl.Outcome, tpl.Students, tpl.Groups)
			}
		}
		log.Println("[DRY RUN] No changes made")
		return
	}

	if *daysAhead > 0 {
		reports, err := svc.GenerateUpcoming(ctx, *daysAhead)
		if err != nil {
			log.Fatalf("Generation failed: %v", err)
		}
		var generated, failed, skipped int
		for _, report := range reports {
			log.Printf("%s: generated=%d failed=%d skipped=%d",
				report.Date.Format("2006-01-02"), report.Generated, report.Failed, report.Skipped)
			generated += report.Generated
			failed += report.Failed
			skipped += report.Skipped
		}
		log.Printf("Done in %v. Total: generated=%d failed=%d skipped=%d",
			time.Since(startTime), generated, failed, skipped)
		return
	}

	report, err := svc.GenerateForDate(ctx, date)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
	log.Printf("Done in %v. %s: generated=%d failed=%d skipped=%d",
		time.Since(startTime), report.Date.Format("2006-01-02"),
		report.Generated, report.Failed, report.Skipped)
}
