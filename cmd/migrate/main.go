// Command migrate applies or rolls back the control plane's schema against
// DATABASE_URL, mirroring the monorepo's flag-based migration CLI.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aypapol/panel/internal/migrate"
)

func main() {
	var (
		down    = flag.Bool("down", false, "roll back all migrations")
		version = flag.Bool("version", false, "print the current migration version")
		force   = flag.Int("force", -1, "force the migration version without running migrations (recovery)")
	)
	flag.Parse()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	runner := migrate.New(db)

	switch {
	case *version:
		v, dirty, err := runner.Version()
		if err != nil {
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("version: %d (dirty: %v)\n", v, dirty)

	case *force >= 0:
		log.Printf("forcing version to %d...", *force)
		if err := runner.Force(*force); err != nil {
			log.Fatalf("failed to force version: %v", err)
		}
		log.Println("version forced")

	case *down:
		log.Println("rolling back all migrations...")
		if err := runner.Down(); err != nil {
			log.Fatalf("failed to roll back: %v", err)
		}
		log.Println("rollback complete")

	default:
		log.Println("running migrations...")
		if err := runner.Up(); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		v, dirty, err := runner.Version()
		if err != nil {
			log.Fatalf("failed to get final version: %v", err)
		}
		log.Printf("migration complete. version: %d (dirty: %v)", v, dirty)
	}
}
