package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mrsinham/shanoirimport/internal/config"
	"github.com/mrsinham/shanoirimport/internal/logging"
	"github.com/mrsinham/shanoirimport/internal/rest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags
var version = "dev"

// tuiLogFile receives the wizard logs when the config names no log file.
const tuiLogFile = "shanoirimport.log"

// app holds the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath string
	apiURL     string
	logLevel   string

	config *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shanoirimport",
		Short: "Preclinical Bruker import client for Shanoir",
		Long: `shanoirimport prepares preclinical imports for a Shanoir server.

It browses an uploaded Bruker archive, lets you pick the series to import,
and manages the extra data files attached to examinations.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file (or set "+config.EnvConfigPath+")")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Shanoir API base URL, overrides the configuration")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.wizardCmd(),
		a.extradataCmd(),
		a.serveCmd(),
		a.fixtureCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger. The wizard owns the
// terminal, so it always logs to a file.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.Path(a.configPath))
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("--api-url: %w", err)
		}
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logFile := cfg.LogFile
	if logFile == "" && cmd.Name() == "wizard" {
		logFile = filepath.Join(os.TempDir(), tuiLogFile)
	}

	logger, err := logging.New(cfg.LogLevel, logFile)
	if err != nil {
		return err
	}

	a.config = cfg
	a.logger = logger.With(zap.String("command", cmd.Name()))
	return nil
}

func (a *app) restClient() *rest.Client {
	return rest.NewClient(a.config.Timeout, a.logger)
}
