package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/migrate"
)

const serviceName = "teamhub-migrate"

type flags struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var f flags
	flag.StringVar(&f.cmd, "cmd", "up", "up|down|redo|status|version|create|validate")
	flag.StringVar(&f.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&f.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&f.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	switch f.cmd {
	case "create":
		path, err := migrate.CreateSQLMigration(f.dir, f.name)
		exitOn(err)
		fmt.Println("created", path)
		return
	case "validate":
		exitOn(migrate.ValidateDir(f.dir))
		fmt.Println("migrations ok")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	exitOn(runGoose(ctx, f))
}

func runGoose(ctx context.Context, f flags) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": f.cmd, "dir": f.dir})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.db_unavailable", err)
		return err
	}
	defer client.Close()

	conn, err := client.DB().DB()
	if err != nil {
		return err
	}
	if err := dispatch(ctx, conn, f); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}

func dispatch(ctx context.Context, conn *sql.DB, f flags) error {
	switch f.cmd {
	case "up", "down", "redo", "status":
		return migrate.Run(ctx, conn, f.dir, f.cmd)
	case "version":
		if f.version == "" {
			return errors.New("-version is required with -cmd=version")
		}
		return migrate.MigrateToVersion(ctx, conn, f.dir, f.version)
	default:
		return fmt.Errorf("unknown -cmd %q", f.cmd)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, serviceName+":", err)
		os.Exit(1)
	}
}
