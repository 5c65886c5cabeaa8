package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tmc/nbdl/internal/api"
	"github.com/tmc/nbdl/internal/console"
	"github.com/tmc/nbdl/internal/slug"
)

// Subdirectories of a session directory.
const (
	NotesDir     = "notes"
	SourcesDir   = "sources"
	ArtifactsDir = "artifacts"
)

func ensureDir(sessionDir, name string) (string, error) {
	dir := filepath.Join(sessionDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s directory: %w", name, err)
	}
	return dir, nil
}

func titleOr(title, id string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	return id
}

// Notes writes every note of nb as Markdown under notes/. Any failure is
// returned.
func Notes(ctx context.Context, c NoteLister, nb api.Notebook, sessionDir string, con *console.Console) (Report, error) {
	var report Report
	dir, err := ensureDir(sessionDir, NotesDir)
	if err != nil {
		return report, err
	}
	notes, err := c.ListNotes(ctx, nb.ID)
	if err != nil {
		return report, fmt.Errorf("list notes: %w", err)
	}
	if len(notes) == 0 {
		con.Dim("No notes found.")
		return report, nil
	}

	con.Info("Downloading %d notes...", len(notes))
	for _, n := range notes {
		name := slug.Make(titleOr(n.Title, n.ID)) + ".md"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(noteMarkdown(n)), 0o644); err != nil {
			return report, fmt.Errorf("write note %s: %w", name, err)
		}
		report.add(Outcome{ID: n.ID, Title: n.Title, Status: Saved, Files: []string{name}})
		con.Success("%s", name)
	}
	return report, nil
}

func noteMarkdown(n api.Note) string {
	var b strings.Builder
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !n.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "_Created: %s_\n\n", n.CreatedAt.Format(time.RFC3339))
	}
	b.WriteString(n.Content)
	return b.String()
}

// sourceRecord is the JSON form of a source's extracted text.
type sourceRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	CharCount int    `json:"char_count"`
	Content   string `json:"content"`
}

// Sources writes the full text of every ready source of nb as a Markdown
// and JSON pair under sources/. A source whose text cannot be fetched is
// reported and skipped; write failures are returned.
func Sources(ctx context.Context, c SourceFetcher, nb api.Notebook, sessionDir string, con *console.Console) (Report, error) {
	var report Report
	dir, err := ensureDir(sessionDir, SourcesDir)
	if err != nil {
		return report, err
	}
	sources, err := c.ListSources(ctx, nb.ID)
	if err != nil {
		return report, fmt.Errorf("list sources: %w", err)
	}
	var ready []api.Source
	for _, s := range sources {
		if s.Ready() {
			ready = append(ready, s)
		}
	}
	if len(ready) == 0 {
		con.Dim("No sources ready.")
		return report, nil
	}

	con.Info("Downloading fulltext of %d sources...", len(ready))
	for _, s := range ready {
		ft, err := c.SourceFulltext(ctx, nb.ID, s.ID)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			con.Failure("%s: %v", titleOr(s.Title, s.ID), err)
			report.add(Outcome{ID: s.ID, Title: s.Title, Status: Failed, Err: err})
			continue
		}

		base := slug.Make(titleOr(ft.Title, s.ID))
		err = writeJSON(filepath.Join(dir, base+".json"), sourceRecord{
			ID:        s.ID,
			Title:     ft.Title,
			URL:       ft.URL,
			Kind:      ft.Kind.String(),
			CharCount: ft.CharCount,
			Content:   ft.Content,
		})
		if err != nil {
			return report, fmt.Errorf("write source %s.json: %w", base, err)
		}
		if err := os.WriteFile(filepath.Join(dir, base+".md"), []byte(sourceMarkdown(ft)), 0o644); err != nil {
			return report, fmt.Errorf("write source %s.md: %w", base, err)
		}
		report.add(Outcome{ID: s.ID, Title: ft.Title, Status: Saved, Files: []string{base + ".md", base + ".json"}})
		con.Success("%s.md / .json (%s chars)", base, console.Count(ft.CharCount))
	}
	return report, nil
}

func sourceMarkdown(ft api.Fulltext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ft.Title)
	if ft.URL != "" {
		fmt.Fprintf(&b, "**Source:** %s\n\n", ft.URL)
	}
	b.WriteString(ft.Content)
	return b.String()
}

// Artifacts downloads every completed artifact of nb under artifacts/.
// Audio is saved as .mp3; quizzes, flashcards and mind maps as .json.
// Other kinds are skipped. A failed download is reported and processing
// continues.
func Artifacts(ctx context.Context, c ArtifactDownloader, nb api.Notebook, sessionDir string, con *console.Console) (Report, error) {
	var report Report
	dir, err := ensureDir(sessionDir, ArtifactsDir)
	if err != nil {
		return report, err
	}
	artifacts, err := c.ListArtifacts(ctx, nb.ID)
	if err != nil {
		return report, fmt.Errorf("list artifacts: %w", err)
	}
	var completed []api.Artifact
	for _, a := range artifacts {
		if a.Completed {
			completed = append(completed, a)
		}
	}
	if len(completed) == 0 {
		con.Dim("No completed artifacts.")
		return report, nil
	}

	con.Info("Downloading %d artifacts...", len(completed))
	for _, a := range completed {
		base := slug.Make(titleOr(a.Title, a.ID))
		var (
			name   string
			suffix string
			fetch  func(ctx context.Context, notebookID, artifactID, path string) error
		)
		switch a.Kind {
		case api.ArtifactKindAudio:
			name, fetch = base+".mp3", c.DownloadAudio
		case api.ArtifactKindQuiz, api.ArtifactKindFlashcards:
			name, fetch = base+".json", c.DownloadQuiz
		case api.ArtifactKindMindMap:
			name, fetch, suffix = base+".json", c.DownloadMindMap, " (mind map)"
		default:
			con.Skip("%s (%s)", titleOr(a.Title, a.ID), a.Kind)
			report.add(Outcome{ID: a.ID, Title: a.Title, Status: Skipped, Kind: a.Kind.String()})
			continue
		}

		if err := fetch(ctx, nb.ID, a.ID, filepath.Join(dir, name)); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			con.Failure("%s: %v", titleOr(a.Title, a.ID), err)
			report.add(Outcome{ID: a.ID, Title: a.Title, Status: Failed, Kind: a.Kind.String(), Err: err})
			continue
		}
		report.add(Outcome{ID: a.ID, Title: a.Title, Status: Saved, Files: []string{name}, Kind: a.Kind.String()})
		con.Success("%s%s", name, suffix)
	}
	return report, nil
}
