// Package cli provides the command-line interface of the portfolio monitor.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"PortfolioMonitor/internal/app"
	"PortfolioMonitor/internal/config"
	"PortfolioMonitor/internal/logging"
)

// Runtime holds what commands share: configuration, logger and the lazily built application.
type Runtime struct {
	Config config.Config
	Logger *slog.Logger

	// LogWriter receives console logs; stderr when nil.
	LogWriter io.Writer

	logCloser io.Closer
	app       *app.Application
	noColor   bool
}

// Application builds the application on first use so config-only commands never open the store.
func (rt *Runtime) Application(ctx context.Context, out io.Writer) (*app.Application, error) {
	if rt.app != nil {
		return rt.app, nil
	}
	a, err := app.New(ctx, rt.Config, rt.Logger, app.Options{Out: out, NoColor: rt.noColor})
	if err != nil {
		return nil, err
	}
	rt.app = a
	return a, nil
}

func (rt *Runtime) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}

	debug, _ := cmd.Flags().GetBool("debug")
	rt.noColor, _ = cmd.Flags().GetBool("no-color")
	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		NoColor:    rt.noColor,
	}
	if debug {
		logCfg.Level = "debug"
	}

	if rt.LogWriter != nil {
		rt.Logger, rt.logCloser = logging.NewWithWriter(rt.LogWriter, logCfg)
	} else {
		rt.Logger, rt.logCloser = logging.New(logCfg)
	}
	rt.Config = cfg
	return nil
}

// Close releases the application and the log file.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.app != nil {
		errs = append(errs, rt.app.Close())
		rt.app = nil
	}
	if rt.logCloser != nil {
		errs = append(errs, rt.logCloser.Close())
		rt.logCloser = nil
	}
	return errors.Join(errs...)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(version string, rt *Runtime) *cobra.Command {
	if rt == nil {
		rt = &Runtime{}
	}

	rootCmd := &cobra.Command{
		Use:   "portfoliomonitor",
		Short: "Monitor news and web mentions of portfolio companies",
		Long: `portfoliomonitor searches news feeds and site-restricted web search for mentions of the
configured portfolio companies, filters false positives, scores sentiment, stores each
mention once and sends alerts for new ones.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (default: $PORTFOLIO_MONITOR_CONFIG or the embedded portfolio)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(
		newRunCmd(rt),
		newMonitorCmd(rt),
		newServeCmd(rt),
		newStatsCmd(rt),
		newRecentCmd(rt),
		newCompanyCmd(rt),
		newPurgeCmd(rt),
		newEntitiesCmd(rt),
	)
	return rootCmd
}
