// Command migrate creates (or drops) the feedback table for the configured
// backend. The web server never creates schema itself.
package main

import (
	"flag"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/NiveditaB444/v0-personal-website-design1/internal/config"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/logger"
	"github.com/NiveditaB444/v0-personal-website-design1/internal/migrations"
)

func main() {
	backend := flag.String("backend", "", "Feedback backend to migrate (postgres, supabase or sqlite); defaults to FEEDBACK_BACKEND")
	dsn := flag.String("dsn", "", "Connection string or SQLite path; defaults to DATABASE_URL or SQLITE_PATH")
	down := flag.Bool("down", false, "Roll back every migration instead of applying them")
	flag.Parse()

	log := logger.GetLogger().Named("migrate")
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		log.Errorw("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *backend == "" {
		*backend = cfg.Feedback.Backend
	}

	// Supabase is Postgres underneath; migrations need a direct connection
	// string rather than the REST endpoint.
	dialect := migrations.Postgres
	target := cfg.Database.URL
	if *backend == config.BackendSQLite {
		dialect = migrations.SQLite
		target = cfg.SQLite.Path
	}
	if *dsn != "" {
		target = *dsn
	}
	if target == "" {
		log.Errorw("No database to migrate; set DATABASE_URL or pass -dsn", "backend", *backend)
		os.Exit(1)
	}

	dir := migrations.Up
	if *down {
		dir = migrations.Down
	}

	log.Infow("Running feedback migrations",
		"backend", *backend,
		"direction", dir,
		"target", logger.MaskConnectionString(target))
	if err := migrations.Run(dialect, target, dir, log); err != nil {
		log.Errorw("Migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("Feedback table is ready")
}
