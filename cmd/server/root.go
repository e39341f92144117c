package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"puppet-server/internal/auth"
	"puppet-server/internal/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "puppet-server",
	Short: "LLM proxy and command relay for puppet clients",
	Long: `puppet-server registers accounts, answers prompts through a hosted or local model,
and relays queued remote-control commands to polling clients.

Configuration is read from the environment (and an optional .env file).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
}

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Print an operator token for /add_command and /ws",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		tok, err := auth.CreateAdminToken(tokenConfig(cfg))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load if present")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(adminTokenCmd)
}

func tokenConfig(cfg config.Config) auth.TokenConfig {
	tc := auth.DefaultTokenConfig(cfg.MasterSecret)
	tc.Expiry = cfg.TokenExpiry
	return tc
}

func newLogger(cfg config.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
