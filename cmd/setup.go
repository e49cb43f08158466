package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hubtwin/internal/shared"
	"github.com/desertthunder/hubtwin/internal/ui"
)

// SetupConfig writes the embedded example config to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("%s\n", ui.Success("✓ Config written to "+r.configPath))
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.hubspot.access_token (or ACCESS_TOKEN)\n")
	r.writePlain("2. Set the credentials.twinfield client settings and company_code\n")
	r.writePlain("3. Place the callback certificate at %s and %s\n", r.config.Server.CertFile, r.config.Server.KeyFile)
	r.writePlain("4. Run 'hubtwin auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Database ready at %s (schema version %d)", r.config.Database.Path, version)))
}
