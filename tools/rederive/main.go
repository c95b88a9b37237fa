// Command rederive re-runs reconciliation for a historical slot range using
// the raw feed payloads persisted at collection time. Safe to re-run: the
// same range twice produces no net change the second time.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"energy-balance/internal/border"
	"energy-balance/internal/feed/replay"
	"energy-balance/internal/feed/transelectrica"
	"energy-balance/internal/interval/application"
	intervalpg "energy-balance/internal/interval/infrastructure/postgres"
	marketapp "energy-balance/internal/market/application"
	marketpg "energy-balance/internal/market/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dbURL      string
	start      string
	end        string
	rosterPath string
	project    bool
	sweep      bool
}

func main() {
	cfg := parseFlags()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	start, err := time.Parse(time.RFC3339, cfg.start)
	if err != nil {
		logger.Fatalf("invalid -start: %v", err)
	}
	end, err := time.Parse(time.RFC3339, cfg.end)
	if err != nil {
		logger.Fatalf("invalid -end: %v", err)
	}
	if !end.After(start) {
		logger.Fatal("-end must be after -start")
	}

	db, err := sql.Open("pgx", cfg.dbURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	roster := border.DefaultRoster()
	if cfg.rosterPath != "" {
		roster, err = border.LoadRoster(cfg.rosterPath)
		if err != nil {
			logger.Fatalf("roster load error: %v", err)
		}
	}

	repo := intervalpg.NewRepository(db)
	reconciler, err := application.NewReconciler(repo, roster, application.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("reconciler error: %v", err)
	}
	source, err := replay.NewSource(replay.NewPostgresStore(db), transelectrica.ParseDefault)
	if err != nil {
		logger.Fatalf("replay source error: %v", err)
	}

	ctx := context.Background()

	if cfg.sweep {
		dropped, err := reconciler.SweepDuplicates(ctx)
		if err != nil {
			logger.Fatalf("duplicate sweep error: %v", err)
		}
		fmt.Printf("duplicate rows dropped: %d\n", dropped)
	}

	report, err := reconciler.RederiveRange(ctx, source, start, end)
	if err != nil {
		logger.Fatalf("rederive error: %v", err)
	}
	fmt.Printf("rederive %s..%s applied=%d rejected=%d\n",
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
		report.Applied, report.Rejected)

	if cfg.project {
		if err := reprojectVolumes(ctx, db, repo, start, end, logger); err != nil {
			logger.Fatalf("reprojection error: %v", err)
		}
	}
}

// reprojectVolumes rebuilds the imbalance volume projection for the
// rederived range from the records that survived.
func reprojectVolumes(ctx context.Context, db *sql.DB, repo *intervalpg.Repository, start, end time.Time, logger *log.Logger) error {
	projector, err := marketapp.NewProjector(marketpg.NewRepository(db), logger)
	if err != nil {
		return err
	}
	slots, err := repo.ListSlots(ctx, start.UTC(), end.UTC())
	if err != nil {
		return err
	}
	for _, slot := range slots {
		record, err := repo.Get(ctx, slot)
		if err != nil {
			return err
		}
		if err := projector.ProjectRecord(ctx, record); err != nil {
			return err
		}
	}
	fmt.Printf("volumes reprojected: %d\n", len(slots))
	return nil
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.dbURL, "db", os.Getenv("DATABASE_URL"), "postgres connection string")
	flag.StringVar(&cfg.start, "start", "", "range start, RFC3339 (inclusive)")
	flag.StringVar(&cfg.end, "end", "", "range end, RFC3339 (exclusive)")
	flag.StringVar(&cfg.rosterPath, "roster", "", "optional roster yaml path")
	flag.BoolVar(&cfg.project, "project", true, "reproject imbalance volumes for the range")
	flag.BoolVar(&cfg.sweep, "sweep", false, "resolve duplicate slot rows before rederiving")
	flag.Parse()

	if cfg.dbURL == "" || cfg.start == "" || cfg.end == "" {
		flag.Usage()
		os.Exit(2)
	}
	return cfg
}
