package like

import (
	"context"
	"fmt"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
)

type Config struct {
	sunoclone.Config

	ID string
}

// Run toggles the like state of a track.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("like: id is empty")
	}
	env, err := sunoclone.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	defer env.Close()

	liked, err := env.App.ToggleLike(ctx, cfg.ID)
	if err != nil {
		return fmt.Errorf("like: %w", err)
	}
	state := "unliked"
	if liked {
		state = "liked"
	}
	fmt.Printf("%s %s\n", cfg.ID, state)
	return nil
}
