package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tmc/nbdl/internal/api"
	"github.com/tmc/nbdl/internal/config"
	"github.com/tmc/nbdl/internal/console"
	"github.com/tmc/nbdl/internal/export"
	"github.com/tmc/nbdl/internal/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// A second interrupt terminates immediately.
		<-ctx.Done()
		stop()
	}()
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nbdl: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	output    string
	debug     bool
	configDir string
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:   "nbdl",
		Short: "Export a NotebookLM notebook to local files",
		Long: `nbdl lists your NotebookLM notebooks, asks which one to export and
downloads its notes, source texts and finished studio artifacts into
<output>/<notebook>_<YYYYMMDD_HHMMSS>/.

Credentials are read from NLM_AUTH_TOKEN and NLM_COOKIES, or from the file
written by "nbdl auth".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, &g)
		},
	}
	root.PersistentFlags().StringVarP(&g.output, "output", "o", "", `parent directory for exports (default "output")`)
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&g.configDir, "config-dir", "", "configuration directory (default ~/.nlm)")
	root.AddCommand(newAuthCmd(&g))
	return root
}

// loadConfig resolves settings and applies command-line overrides.
func loadConfig(g *globalFlags) (*config.Config, string, error) {
	dir := g.configDir
	if dir == "" {
		var err error
		if dir, err = config.Dir(); err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.Load(dir, os.LookupEnv)
	if err != nil {
		return nil, "", err
	}
	if g.output != "" {
		cfg.OutputDir = g.output
	}
	if g.debug {
		cfg.Debug = true
	}
	return cfg, dir, nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runExport(cmd *cobra.Command, g *globalFlags) error {
	cfg, _, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
	logger.Debug("configuration loaded", "output", cfg.OutputDir, "timeout", cfg.Timeout)

	return export.Run(cmd.Context(), export.Options{
		Open: func(ctx context.Context) (export.Client, error) {
			creds, err := cfg.Credentials()
			if err != nil {
				return nil, err
			}
			return api.New(creds, api.WithTimeout(cfg.Timeout), api.WithLogger(logger)), nil
		},
		Root:    cfg.OutputDir,
		Input:   prompt.New(cmd.InOrStdin(), cmd.OutOrStdout()),
		Console: console.New(cmd.OutOrStdout()),
		Logger:  logger,
	})
}
