// Package cli wires Miniflow's cobra command surface: setup, run,
// quickstart, and help, each loading the layered application configuration
// before doing anything else.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/miniflow/miniflow/pkg/config"
	"github.com/miniflow/miniflow/pkg/logger"
)

// appConfigPathFlag is the --config flag shared by every subcommand that
// needs a resolved Config.
const appConfigPathFlag = "config"

// Execute builds the root command and runs it against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd assembles the miniflow root command and its subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "miniflow",
		Short: "Miniflow execution core",
		Long:  "A command-line interface for running and smoke-testing Miniflow workflows.",
	}
	root.PersistentFlags().String(appConfigPathFlag, "", "path to a YAML config file (optional; defaults and env vars still apply)")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")

	root.AddCommand(newSetupCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newQuickstartCmd())
	root.AddCommand(newHelpCmd(root))
	return root
}

// loadConfig layers the compiled-in defaults, an optional config file, and
// environment variables, in that precedence order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(appConfigPathFlag)
	providers := []config.Provider{config.NewDefaultProvider()}
	if path != "" {
		providers = append(providers, config.NewFileProvider(path))
	}
	providers = append(providers, config.NewEnvProvider(""))

	manager := config.NewManager(nil)
	cfg, err := manager.Load(cmd.Context(), providers...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newProcessLogger builds the process-wide logger, honoring --verbose.
func newProcessLogger(cmd *cobra.Command) logger.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	cfg := logger.DefaultConfig()
	if verbose {
		cfg.Level = logger.DebugLevel
	}
	return logger.NewLogger(cfg)
}
