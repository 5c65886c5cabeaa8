// Package export writes a NotebookLM notebook to a local directory tree.
//
// A run lists the account's notebooks, asks the user to choose one, and
// then makes three independent passes over it:
//
//	<root>/<slug>_<YYYYMMDD_HHMMSS>/
//	    notebook.json
//	    notes/<slug>.md
//	    sources/<slug>.md, sources/<slug>.json
//	    artifacts/<slug>.mp3, artifacts/<slug>.json
//
// Per-item failures are reported and recorded in a Report; listing and
// filesystem failures abort the run.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/tmc/nbdl/internal/api"
)

// NoteLister lists the notes of a notebook.
type NoteLister interface {
	ListNotes(ctx context.Context, notebookID string) ([]api.Note, error)
}

// SourceFetcher lists sources and fetches their extracted text.
type SourceFetcher interface {
	ListSources(ctx context.Context, notebookID string) ([]api.Source, error)
	SourceFulltext(ctx context.Context, notebookID, sourceID string) (api.Fulltext, error)
}

// ArtifactDownloader lists studio artifacts and saves them to disk.
type ArtifactDownloader interface {
	ListArtifacts(ctx context.Context, notebookID string) ([]api.Artifact, error)
	DownloadAudio(ctx context.Context, notebookID, artifactID, path string) error
	DownloadQuiz(ctx context.Context, notebookID, artifactID, path string) error
	DownloadMindMap(ctx context.Context, notebookID, artifactID, path string) error
}

// Client is an open NotebookLM session.
type Client interface {
	NoteLister
	SourceFetcher
	ArtifactDownloader
	ListNotebooks(ctx context.Context) ([]api.Notebook, error)
	Close() error
}

// Opener opens a client session. The caller closes it.
type Opener func(ctx context.Context) (Client, error)

var _ Client = (*api.Client)(nil)

// Status is the result of processing one item.
type Status int

const (
	Saved Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Saved:
		return "saved"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome records what happened to one note, source or artifact.
type Outcome struct {
	ID     string
	Title  string
	Status Status
	Files  []string // base names written, relative to the pass directory
	Kind   string   // set for skipped artifacts
	Err    error    // set when Status is Failed
}

// Report collects the outcomes of one pass.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Count returns the number of outcomes with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// writeJSON writes v indented, leaving non-ASCII and HTML characters as is.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
