// Command seed заполняет базу демонстрационными данными:
// должности, департаменты с секциями, пользователи всех ролей,
// проекты и задачи.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/project-tracker-api/internal/config"
	"github.com/project-tracker-api/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&opts.password, "password", "password123", "password for every seeded user")
	flagSet.BoolVar(&opts.reset, "reset", false, "delete all existing data before seeding")
	flagSet.IntVar(&opts.tasksPerProject, "tasks-per-project", 4, "number of tasks created in each project")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: seed [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}
	if len(opts.password) < 8 {
		return fmt.Errorf("--password must be at least 8 characters")
	}
	if opts.tasksPerProject < 0 {
		return fmt.Errorf("--tasks-per-project must not be negative")
	}

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(db, cfg.Database.Driver); err != nil {
		return err
	}

	summary, err := newSeeder(db, opts, logger).Run(context.Background())
	if err != nil {
		return err
	}
	if summary == nil {
		logger.Info("database already contains users, nothing to do (use --reset to start over)")
		return nil
	}
	logger.Info("database seeded",
		slog.Int("departments", summary.Departments),
		slog.Int("users", summary.Users),
		slog.Int("projects", summary.Projects),
		slog.Int("tasks", summary.Tasks),
	)
	return nil
}
