package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

// MaybeRunDev migrates on boot only in dev with TEAMHUB_AUTO_MIGRATE=true.
// Deployed environments run cmd/migrate as a release step.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	switch {
	case cfg == nil || client == nil:
		return errors.New("config and db client are required")
	case !cfg.App.IsDev(), !cfg.FeatureFlags.AutoMigrate:
		return nil
	}

	conn, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
		logg.Info(ctx, "migrate.boot.start")
	}
	if err := Run(ctx, conn, DefaultDir, "up"); err != nil {
		return fmt.Errorf("boot migrations: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "migrate.boot.done")
	}
	return nil
}
