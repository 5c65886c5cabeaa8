package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/nbdl/internal/api"
	"github.com/tmc/nbdl/internal/console"
	"github.com/tmc/nbdl/internal/selector"
	"github.com/tmc/nbdl/internal/slug"
)

// DefaultRoot is the directory session directories are created in.
const DefaultRoot = "output"

// Options configures Run.
type Options struct {
	Open    Opener
	Root    string              // parent of the session directory; DefaultRoot if empty
	Input   selector.LineReader // source of the notebook choice
	Console *console.Console
	Now     func() time.Time // defaults to time.Now
	Logger  *slog.Logger
}

// metadata is the content of notebook.json.
type metadata struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	SourcesCount int     `json:"sources_count"`
	CreatedAt    *string `json:"created_at"`
	DownloadedAt string  `json:"downloaded_at"`
}

// SessionDir returns the directory a notebook is exported into.
func SessionDir(root string, nb api.Notebook, now time.Time) string {
	return filepath.Join(root, slug.Make(nb.Title)+"_"+now.Format("20060102_150405"))
}

// Run performs one interactive export. It returns nil when the user
// cancels the selection.
func Run(ctx context.Context, opts Options) error {
	if opts.Open == nil {
		return errors.New("export: no client opener")
	}
	if opts.Input == nil {
		return errors.New("export: no input reader")
	}
	if opts.Root == "" {
		opts.Root = DefaultRoot
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Console == nil {
		opts.Console = console.New(os.Stdout)
	}
	con := opts.Console
	logger := opts.Logger.With("run", uuid.NewString())

	con.Panel("NotebookLM Downloader", "nbdl")

	client, err := opts.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.WarnContext(ctx, "close session", "err", err)
		}
	}()

	con.Printf("Loading notebook list... ")
	notebooks, err := client.ListNotebooks(ctx)
	if err != nil {
		con.Printf("\n")
		return fmt.Errorf("list notebooks: %w", err)
	}
	con.Printf("%d found\n\n", len(notebooks))
	logger.DebugContext(ctx, "listed notebooks", "count", len(notebooks))

	sel := &selector.Selector{Notebooks: notebooks, Input: opts.Input, Console: con}
	nb, ok, err := sel.Pick(ctx)
	if err != nil {
		return fmt.Errorf("select notebook: %w", err)
	}
	if !ok {
		con.Warn("Cancelled.")
		return nil
	}
	con.Printf("\nSelected notebook: %s (id: %s)\n\n", con.Highlight(nb.Title), nb.ID)

	now := opts.Now()
	dir := SessionDir(opts.Root, nb, now)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	logger = logger.With("notebook", nb.ID, "dir", dir)
	logger.InfoContext(ctx, "exporting notebook")

	meta := metadata{
		ID:           nb.ID,
		Title:        nb.Title,
		SourcesCount: nb.SourceCount,
		DownloadedAt: now.Format(time.RFC3339),
	}
	if !nb.CreatedAt.IsZero() {
		created := nb.CreatedAt.Format(time.RFC3339)
		meta.CreatedAt = &created
	}
	if err := writeJSON(filepath.Join(dir, "notebook.json"), meta); err != nil {
		return fmt.Errorf("write notebook.json: %w", err)
	}

	passes := []struct {
		name string
		run  func() (Report, error)
	}{
		{"Notes", func() (Report, error) { return Notes(ctx, client, nb, dir, con) }},
		{"Sources", func() (Report, error) { return Sources(ctx, client, nb, dir, con) }},
		{"Artifacts", func() (Report, error) { return Artifacts(ctx, client, nb, dir, con) }},
	}
	for _, p := range passes {
		con.Section(p.name)
		report, err := p.run()
		logger.DebugContext(ctx, "pass finished", "pass", p.name,
			"saved", report.Count(Saved), "skipped", report.Count(Skipped), "failed", report.Count(Failed))
		if err != nil {
			return err
		}
	}

	con.Done("Output saved to: %s", dir)
	return nil
}
