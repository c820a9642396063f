package migrate

import (
	"context"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
)

type Config struct {
	sunoclone.Config
}

// Run launches the migration process.
func Run(ctx context.Context, cfg *Config) error {
	log, err := sunoclone.Logger(&cfg.Config)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("migrate: started")
	defer log.Info("migrate: ended")

	store, err := sunoclone.OpenStore(ctx, &cfg.Config, log)
	if err != nil {
		return err
	}
	return store.Close()
}
