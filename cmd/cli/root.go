// Package cli implements the oidc-admin command line tool.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/oidc-core/internal/config"
	"github.com/turtacn/oidc-core/internal/infrastructure/monitoring"
	"github.com/turtacn/oidc-core/pkg/logger"
)

type options struct {
	configPath string
}

// NewRootCmd builds the oidc-admin command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "oidc-admin",
		Short:         "Administer the oidc-core authorization server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the configuration file")

	root.AddCommand(newConfigCmd(opts), newTenantsCmd(opts), newKeysCmd(opts))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) load() (*config.Config, logger.Logger, error) {
	log, err := monitoring.NewZapLogger(&config.LogConfig{Level: "warn", Format: "console"})
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadConfig(o.configPath, log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
