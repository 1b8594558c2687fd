package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/academiaalbert/academia-backend/pkg/config"
	"github.com/academiaalbert/academia-backend/pkg/db"
	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/academiaalbert/academia-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date when running in dev with AutoMigrate on.
// Local sqlite databases get the gorm models instead of the postgres SQL files.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if strings.EqualFold(strings.TrimSpace(cfg.DB.Driver), db.DriverSQLite) {
		logg.Info(ctx, "migrate.sqlite_automigrate")
		if err := client.DB().WithContext(ctx).AutoMigrate(&models.User{}, &models.Course{}); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(logg.WithField(ctx, "dir", DefaultDir), "migrate.goose_up")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "migrate.goose_complete")
	return nil
}
