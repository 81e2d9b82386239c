// Command seed provisions one Postgres schema per assignment and writes the
// assignment documents to the docstore.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"ciphersql/internal/config"
	"ciphersql/internal/database"
	"ciphersql/internal/docstore"
	"ciphersql/internal/repositories"
	"ciphersql/internal/seeddata"
	"ciphersql/internal/server"
	"ciphersql/internal/services"
)

func main() {
	file := flag.String("file", "", "YAML or JSON assignment file (defaults to the built-in set)")
	reset := flag.Bool("reset", false, "delete every assignment document before seeding")
	prune := flag.Bool("prune", true, "remove documents and schemas of assignments no longer defined")
	flag.Parse()

	server.SetupLogger()

	if err := run(*file, services.SeedOptions{Reset: *reset, Prune: *prune}); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(file string, opts services.SeedOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	defs, err := loadDefinitions(file)
	if err != nil {
		return err
	}

	pool, err := database.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := docstore.Open(cfg.DocStore.Path, repositories.AssignmentsBucket)
	if err != nil {
		return err
	}
	defer store.Close()

	seeder := services.NewSeedService(
		pool,
		repositories.NewAssignmentRepository(store),
		repositories.NewSchemaRepository(pool),
		cfg.Sandbox.Role,
	)

	_, err = seeder.Seed(ctx, defs, opts)
	return err
}

func loadDefinitions(file string) ([]seeddata.Definition, error) {
	if file == "" {
		return seeddata.LoadDefault()
	}
	return seeddata.Load(file)
}
