package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"noticeboard/internal/config"
	"noticeboard/migrations"
)

// runMigrateCommand applies the embedded migrations. "migrate down" rolls
// everything back.
func runMigrateCommand() error {
	cfg, err := config.LoadServer(os.Getenv("NOTICEBOARD_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		return errors.New("migrate requires storage.driver postgres")
	}

	down := len(os.Args) > 2 && os.Args[2] == "down"
	if err := runMigrations(cfg.Database.URL, down); err != nil {
		return err
	}

	fmt.Println("migrations applied successfully")
	return nil
}

func runMigrations(databaseURL string, down bool) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open embedded migrations failed: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, pgx5URL(databaseURL))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	if down {
		err = migrator.Down()
	} else {
		err = migrator.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations failed: %w", err)
	}
	return nil
}

// pgx5URL rewrites a postgres:// URL to the scheme the pgx/v5 migrate driver
// registers.
func pgx5URL(databaseURL string) string {
	trimmed := strings.TrimSpace(databaseURL)
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(trimmed, prefix) {
			return "pgx5://" + strings.TrimPrefix(trimmed, prefix)
		}
	}
	return trimmed
}
