package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/pageza/macrotrack/backend/config"
	"github.com/pageza/macrotrack/backend/internal/database"
	"github.com/pageza/macrotrack/backend/internal/logging"
)

const usage = `Usage: migrate [flags] <command> [args]

Commands:
  up                   apply all pending migrations
  up-to VERSION        apply migrations up to VERSION
  down                 roll back the last migration
  down-to VERSION      roll back to VERSION
  status               list applied and pending migrations
  version              print the current schema version
  reset                roll back every migration

The connection comes from DATABASE_URL, or from the DB_* settings when unset.
`

func main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		dsn = cfg.PostgresDSN()
	}

	logger, err := logging.New(string(config.GetEnvironment()), os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunGoose(context.Background(), db, command, logger, args...); err != nil {
		log.Fatalf("%v", err)
	}
}
