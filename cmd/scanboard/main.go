// scanboard runs a switch-access scanning board: items are highlighted in
// turn and a single switch press selects the highlighted one.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-scanboard/internal/config"
	"github.com/teslashibe/go-scanboard/internal/log"
)

// options are the flags shared by every subcommand.
type options struct {
	envFile  string
	logLevel string
	backend  string
	apiKey   string

	cfg config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "scanboard",
		Short:         "Switch-access scanning board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.envFile, "env", ".env", "dotenv file loaded under the environment")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	pf.StringVar(&opts.backend, "backend", "", "board backend URL (overrides SCANBOARD_BACKEND_URL)")
	pf.StringVar(&opts.apiKey, "api-key", "", "board backend bearer token (overrides SCANBOARD_API_KEY)")

	root.AddCommand(newServeCmd(opts), newSayCmd(opts))
	return root
}

// load resolves configuration: flags over environment over the dotenv file.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return fmt.Errorf("load %s: %w", o.envFile, err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("backend") {
		cfg.BackendURL = o.backend
	}
	if flags.Changed("api-key") {
		cfg.APIKey = o.apiKey
	}

	log.Init(cfg.LogLevel)
	o.cfg = cfg
	return nil
}
