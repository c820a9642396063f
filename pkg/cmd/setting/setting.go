package setting

import (
	"context"
	"fmt"
	"os"

	sunoclone "github.com/darioluanne770968-prog/suno-clone"
	"gopkg.in/yaml.v3"
)

type Config struct {
	sunoclone.Config

	Key   string
	Value string
}

// Run prints all settings, prints one setting or updates it.
func Run(ctx context.Context, cfg *Config) error {
	env, err := sunoclone.Open(ctx, &cfg.Config)
	if err != nil {
		return err
	}
	defer env.Close()
	st := env.Settings

	switch {
	case cfg.Key == "":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		if err := enc.Encode(st.Values()); err != nil {
			return fmt.Errorf("setting: couldn't encode settings: %w", err)
		}
		return nil
	case cfg.Value == "":
		v, err := st.Get(cfg.Key)
		if err != nil {
			return fmt.Errorf("setting: %w", err)
		}
		fmt.Println(v)
		return nil
	default:
		if err := st.Set(ctx, cfg.Key, cfg.Value); err != nil {
			return fmt.Errorf("setting: couldn't save %s: %w", cfg.Key, err)
		}
		env.Log.Info("setting saved")
		return nil
	}
}
