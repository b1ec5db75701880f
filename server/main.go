// Command flake issues and decodes 64-bit snowflake IDs.
//
//	flake serve  --worker-id 3 --datacenter-id 1 --addr :9000
//	flake next   -n 5
//	flake decode 1 2 3
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"sohio.net/flake/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM, unix.SIGHUP)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

type app struct {
	envFiles []string
	cfg      config.Config
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "flake",
		Short:             "Coordination-free 64-bit ID generator",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default ./.env if present)")
	pf.Int64("worker-id", 0, "worker id, 0-31 (env FLAKE_WORKER_ID)")
	pf.Int64("datacenter-id", 0, "datacenter id, 0-31 (env FLAKE_DATACENTER_ID)")
	pf.String("log-level", "", "debug|info|warn|error (env FLAKE_LOG_LEVEL)")
	pf.String("log-format", "", "text|json (env FLAKE_LOG_FORMAT)")

	root.AddCommand(a.newServeCmd(), a.newNextCmd(), a.newDecodeCmd())
	return root
}

// load resolves configuration for every subcommand: defaults, env files,
// environment, then any flag set explicitly on the command line.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.envFiles...)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("worker-id") {
		cfg.WorkerID, _ = flags.GetInt64("worker-id")
	}
	if flags.Changed("datacenter-id") {
		cfg.DatacenterID, _ = flags.GetInt64("datacenter-id")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
