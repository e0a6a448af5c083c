package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/config"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/observability/logger"
)

func main() {
	var (
		cfgPath = config.DefaultPath
		cfg     *config.Config
	)

	root := &cobra.Command{
		Use:           "thinkos-node",
		Short:         "Nodo ThinkOS: ticks CMPS contra AIFA + heartbeat UDP entre peers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env es opcional; las variables del sistema siguen valiendo.
			envErr := godotenv.Load()

			f := cmd.Flag("config")
			c, err := config.Load(configPath(cfgPath, f != nil && f.Changed))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = c

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "thinkos-node",
				NodeID:      cfg.Node.ID,
			})
			if envErr != nil {
				logger.L().Debug("no .env loaded, using process environment", logger.Err(envErr))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "Archivo YAML de configuración (env CONFIG_PATH); si no existe se usan defaults")

	cfgFn := func() *config.Config { return cfg }
	root.AddCommand(
		newRunCmd(cfgFn),
		newConfigCmd(cfgFn),
		newAIFACmd(cfgFn),
		newCompositeCmd(cfgFn),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// configPath: --config explícito gana; si no, CONFIG_PATH (que puede venir del
// .env ya cargado) y por último el default del flag.
func configPath(flagVal string, flagChanged bool) string {
	if flagChanged {
		return flagVal
	}
	return envOr("CONFIG_PATH", flagVal)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
