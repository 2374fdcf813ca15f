// Migrate runner CLI
// Applies the repo's migrations/ directory against the configured Postgres
// database, tracking applied versions in a schema_version table.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/fundcore/internal/config"
	"github.com/quantforge/fundcore/internal/db"
)

var (
	configPath    = flag.String("config", "", "Path to config file (optional, env vars take precedence)")
	migrationsDir = flag.String("migrations-dir", "migrations", "Directory holding NNN_description.sql migration files")
	statusOnly    = flag.Bool("status", false, "Report migration status without applying anything")
	verbose       = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	sqlDB, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer sqlDB.Close()

	db.SetMigrationsDir(*migrationsDir)
	migrator := db.NewMigrator(sqlDB)

	if *statusOnly {
		if err := migrator.Status(ctx); err != nil {
			log.Fatal().Err(err).Msg("migration status failed")
		}
		return
	}

	if err := migrator.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	fmt.Println("migrations applied successfully")
}
