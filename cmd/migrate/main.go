// Command migrate applies or rolls back the storefront schema.
//
//	migrate up              apply all pending migrations
//	migrate down --steps 1  roll back one migration
//	migrate version         print the current schema version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/emberwick/storefront/internal/infra/config"
	"github.com/emberwick/storefront/internal/shared/logger"
	"github.com/emberwick/storefront/migrations"
	"github.com/golang-migrate/migrate/v4"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to config.yaml")
	steps := flag.IntP("steps", "n", 1, "number of migrations to roll back with down")
	flag.Parse()

	log := logger.New(logger.DefaultConfig())
	defer func() { _ = log.Sync() }()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [--config path] up|down|version")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *configPath, *steps, log); err != nil {
		log.Error("migration failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(command, configPath string, steps int, log *zap.Logger) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}

	m, err := migrations.New(cfg.Database.URL())
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		if steps < 1 {
			return fmt.Errorf("--steps must be positive")
		}
		err = m.Steps(-steps)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			log.Info("no migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("schema is up to date")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.String("command", command))
	return nil
}
