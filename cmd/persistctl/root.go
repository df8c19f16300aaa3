// Package persistctl is a small operational CLI over the persist package:
// it inspects and repairs the on-disk file set of a lockedfile.Persister,
// and runs the demo record end-to-end for smoke-testing a deployment.
// Command wiring uses cobra + viper, with a PersistentPreRunE that loads
// config before every command runs.
package persistctl

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cocoonpersist/persist/config"
)

var (
	cfgFile string
	conf    *config.Config
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persistctl",
		Short: "persistctl - inspect and repair a persist-managed file",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(commandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	_ = viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))

	viper.SetEnvPrefix("PERSIST")
	viper.AutomaticEnv()

	cmd.AddCommand(showCmd(), recoverCmd(), demoCmd())

	return cmd
}()

func initConfig(ctx context.Context) error {
	conf = config.DefaultConfig()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if err := viper.Unmarshal(conf); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	return log.SetupLog(ctx, &conf.Log, "")
}

// commandContext returns cmd's context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// Execute is the entry point called from main.go.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}
