package main

import (
	"fmt"
	"os"

	"price-service/pkg/config"
	"price-service/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "price-service"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Partner price ingestion API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newProvisionCmd(),
		newRevokeCmd(),
	)
	return root
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: serviceName,
	})
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}
