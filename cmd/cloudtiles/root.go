package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/cloudtiles/internal/config"
	"github.com/ivlev/cloudtiles/internal/logging"
	"github.com/ivlev/cloudtiles/internal/system"
)

type commandContext struct {
	configFlag  string
	logModeFlag string

	config *config.Config
}

// load reads the config once, applies --log-mode and starts the logger.
func (c *commandContext) load(cmd *cobra.Command) error {
	if c.config != nil {
		return nil
	}
	var cfg *config.Config
	if path := strings.TrimSpace(c.configFlag); path == "" {
		cfg = config.New()
	} else {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("log-mode") {
		cfg.Log.Mode = c.logModeFlag
	}
	if err := logging.InitLogger(cfg.Log.Mode); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.File == "" {
		logging.Logger.Debug("no config file, using defaults", zap.String("path", c.configFlag))
	} else {
		logging.Logger.Debug("config loaded", zap.String("path", cfg.File))
	}
	c.config = cfg
	return nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "cloudtiles",
		Short:         "Cloud segmentation tiles and classifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfigLoad"] == "true" {
				return nil
			}
			if err := ctx.load(cmd); err != nil {
				return err
			}
			system.InitResourceLimits()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&ctx.logModeFlag, "log-mode", "debug", "Log mode: debug or release")

	rootCmd.AddCommand(newPrepareCommand(ctx))
	rootCmd.AddCommand(newTrainCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "cloudtiles %s\n", version)
			return nil
		},
	}
}
