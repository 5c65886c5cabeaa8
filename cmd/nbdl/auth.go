package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tmc/nbdl/internal/api"
	"github.com/tmc/nbdl/internal/auth"
	"github.com/tmc/nbdl/internal/config"
)

func newAuthCmd(g *globalFlags) *cobra.Command {
	var (
		show  bool
		check bool
	)
	cmd := &cobra.Command{
		Use:   "auth [profile]",
		Short: "Store NotebookLM credentials from a browser profile",
		Long: `auth loads NotebookLM with a copy of a local Chrome, Chromium or Brave
profile that is already signed in to Google, and stores the page's auth token
and cookies for later runs.

When standard input is not a terminal, auth instead reads a batchexecute
request copied as cURL from the browser's network panel:

	pbpaste | nbdl auth`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dir, err := loadConfig(g)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
			stderr := cmd.ErrOrStderr()

			profile := cfg.BrowserProfile
			if len(args) > 0 {
				profile = args[0]
			}

			var token, cookies string
			if in, ok := pipedInput(cmd.InOrStdin()); ok {
				data, err := io.ReadAll(in)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				if strings.TrimSpace(string(data)) == "" {
					return fmt.Errorf("no curl command on standard input")
				}
				if token, cookies, err = auth.ParseCurl(string(data)); err != nil {
					return err
				}
				profile = ""
			} else {
				fmt.Fprintf(stderr, "nbdl: launching browser to log in... (profile: %s)\n", auth.MaskProfileName(profile))
				b := auth.New(
					auth.WithProfile(profile),
					auth.WithHeadless(!show),
					auth.WithTimeout(cfg.Timeout),
					auth.WithLogger(logger),
				)
				if token, cookies, err = b.Login(cmd.Context()); err != nil {
					return fmt.Errorf("browser auth: %w", err)
				}
			}

			path, err := config.SaveCredentials(dir, token, cookies, profile)
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "nbdl: credentials written to %s\n", path)

			if check {
				client := api.New(api.Credentials{AuthToken: token, Cookies: cookies},
					api.WithTimeout(cfg.Timeout), api.WithLogger(logger))
				defer client.Close()
				notebooks, err := client.ListNotebooks(cmd.Context())
				if err != nil {
					return fmt.Errorf("check credentials: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Found %d notebooks.\n", len(notebooks))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "show the browser window")
	cmd.Flags().BoolVar(&check, "check", false, "list notebooks with the new credentials")
	return cmd
}

// pipedInput reports whether r carries piped data rather than an
// interactive terminal or an empty device.
func pipedInput(r io.Reader) (io.Reader, bool) {
	f, ok := r.(*os.File)
	if !ok {
		return r, true
	}
	if term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	fi, err := f.Stat()
	if err != nil || fi.Mode()&os.ModeCharDevice != 0 {
		return nil, false
	}
	return f, true
}
