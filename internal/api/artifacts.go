package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/nbdl/internal/rpc"
)

const artifactFilter = `NOT artifact.status = "ARTIFACT_STATUS_SUGGESTED"`

func (c *Client) rawArtifacts(ctx context.Context, notebookID string) ([]any, error) {
	v, err := c.call(ctx, rpc.Call{
		ID:         rpc.RPCListArtifacts,
		Args:       []any{[]int{2}, notebookID, artifactFilter},
		NotebookID: notebookID,
	})
	if err != nil {
		return nil, err
	}
	return list(v, 0), nil
}

// ListArtifacts returns the studio artifacts of a notebook, including mind
// maps, which are stored alongside notes.
func (c *Client) ListArtifacts(ctx context.Context, notebookID string) ([]Artifact, error) {
	entries, err := c.rawArtifacts(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var artifacts []Artifact
	seen := make(map[string]bool)
	for _, entry := range entries {
		a, ok := parseArtifact(entry)
		if !ok {
			c.skipped(ctx, "artifact", entry)
			continue
		}
		seen[a.ID] = true
		artifacts = append(artifacts, a)
	}

	items, err := c.listNoteItems(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("list mind maps: %w", err)
	}
	for _, it := range items {
		if !it.isMindMap() || seen[it.ID] {
			continue
		}
		artifacts = append(artifacts, Artifact{
			ID:        it.ID,
			Title:     it.Title,
			Kind:      ArtifactKindMindMap,
			Completed: true,
		})
	}
	return artifacts, nil
}

func (c *Client) findArtifact(ctx context.Context, notebookID, artifactID string) (any, Artifact, error) {
	entries, err := c.rawArtifacts(ctx, notebookID)
	if err != nil {
		return nil, Artifact{}, fmt.Errorf("list artifacts: %w", err)
	}
	for _, entry := range entries {
		if a, ok := parseArtifact(entry); ok && a.ID == artifactID {
			return entry, a, nil
		}
	}
	return nil, Artifact{}, &NotFoundError{ResourceType: "artifact", ID: artifactID}
}

// DownloadAudio saves the media of a completed audio overview to path.
func (c *Client) DownloadAudio(ctx context.Context, notebookID, artifactID, path string) error {
	entry, a, err := c.findArtifact(ctx, notebookID, artifactID)
	if err != nil {
		return err
	}
	if a.Kind != ArtifactKindAudio {
		return fmt.Errorf("artifact %s is %s, not audio", artifactID, a.Kind)
	}
	mediaURL := audioURL(entry)
	if !a.Completed || mediaURL == "" {
		return &NotReadyError{ResourceType: "audio", ID: artifactID}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return fmt.Errorf("create media request: %w", err)
	}
	req.Header.Set("cookie", c.cookies)
	resp, err := c.media.Do(req)
	if err != nil {
		return fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download audio: %s", resp.Status)
	}
	if ct := resp.Header.Get("content-type"); strings.HasPrefix(ct, "text/html") {
		// Expired cookies redirect to the sign-in page.
		return fmt.Errorf("download audio: got %s instead of media, re-run nbdl auth", ct)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write audio: %w", err)
	}
	c.logger.DebugContext(ctx, "downloaded audio", "artifact", artifactID, "bytes", n)
	return nil
}

// QuizExport is the on-disk format for quizzes and flashcard decks.
type QuizExport struct {
	Title     string         `json:"title"`
	Kind      string         `json:"kind"`
	Questions []QuizQuestion `json:"questions,omitempty"`
	Cards     []Flashcard    `json:"cards,omitempty"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Answer    string   `json:"answer"`
	Hint      string   `json:"hint,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
}

// Flashcard is one card of a deck.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// appData is the JSON embedded in the interactive artifact page.
type appData struct {
	Quiz []struct {
		Question      string `json:"question"`
		Hint          string `json:"hint"`
		AnswerOptions []struct {
			Text      string `json:"text"`
			IsCorrect bool   `json:"isCorrect"`
			Rationale string `json:"rationale"`
		} `json:"answerOptions"`
	} `json:"quiz"`
	Flashcards []struct {
		Front string `json:"f"`
		Back  string `json:"b"`
	} `json:"flashcards"`
}

var converter = md.NewConverter("", true, nil)

// markdown converts an HTML fragment to Markdown. Plain text is returned
// trimmed.
func markdown(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	out, err := converter.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}

// DownloadQuiz saves a quiz or flashcard deck to path as JSON.
func (c *Client) DownloadQuiz(ctx context.Context, notebookID, artifactID, path string) error {
	_, a, err := c.findArtifact(ctx, notebookID, artifactID)
	if err != nil {
		return err
	}
	if a.Kind != ArtifactKindQuiz && a.Kind != ArtifactKindFlashcards {
		return fmt.Errorf("artifact %s is %s, not a quiz", artifactID, a.Kind)
	}
	v, err := c.call(ctx, rpc.Call{
		ID:         rpc.RPCGetInteractiveHTML,
		Args:       []any{artifactID},
		NotebookID: notebookID,
	})
	if err != nil {
		return fmt.Errorf("get quiz content: %w", err)
	}
	page := str(v, 0, 9, 0)
	if page == "" {
		return &NotReadyError{ResourceType: a.Kind.String(), ID: artifactID}
	}
	export, err := parseQuizPage(page)
	if err != nil {
		return fmt.Errorf("parse %s: %w", a.Kind, err)
	}
	export.Title = a.Title
	export.Kind = a.Kind.String()

	data, err := marshalIndent(export)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func parseQuizPage(page string) (QuizExport, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return QuizExport{}, err
	}
	raw, ok := doc.Find("[data-app-data]").First().Attr("data-app-data")
	if !ok {
		return QuizExport{}, fmt.Errorf("no data-app-data attribute")
	}
	var data appData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return QuizExport{}, fmt.Errorf("decode app data: %w", err)
	}

	var export QuizExport
	for _, q := range data.Quiz {
		qq := QuizQuestion{
			Question: markdown(q.Question),
			Hint:     markdown(q.Hint),
			Options:  []string{},
		}
		for _, opt := range q.AnswerOptions {
			text := markdown(opt.Text)
			qq.Options = append(qq.Options, text)
			if opt.IsCorrect {
				qq.Answer = text
				qq.Rationale = markdown(opt.Rationale)
			}
		}
		export.Questions = append(export.Questions, qq)
	}
	for _, fc := range data.Flashcards {
		export.Cards = append(export.Cards, Flashcard{
			Front: markdown(fc.Front),
			Back:  markdown(fc.Back),
		})
	}
	return export, nil
}

// DownloadMindMap saves a mind map's JSON tree to path.
func (c *Client) DownloadMindMap(ctx context.Context, notebookID, artifactID, path string) error {
	items, err := c.listNoteItems(ctx, notebookID)
	if err != nil {
		return fmt.Errorf("list mind maps: %w", err)
	}
	for _, it := range items {
		if it.ID != artifactID || !it.isMindMap() {
			continue
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(strings.TrimSpace(it.Content)), "", "  "); err != nil {
			return fmt.Errorf("decode mind map: %w", err)
		}
		buf.WriteByte('\n')
		return os.WriteFile(path, buf.Bytes(), 0o644)
	}
	return &NotFoundError{ResourceType: "mind map", ID: artifactID}
}
