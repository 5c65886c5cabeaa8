package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeNotebookLM answers batchexecute requests with canned payloads keyed
// by RPC ID and serves audio media under /media/.
type fakeNotebookLM struct {
	*httptest.Server

	mu       sync.Mutex
	payloads map[string]any
	raw      map[string]string // full response bodies, overriding payloads
	requests []fakeRequest
}

type fakeRequest struct {
	RPC        string
	SourcePath string
	Args       string
	Cookie     string
}

func newFake(t *testing.T) *fakeNotebookLM {
	t.Helper()
	f := &fakeNotebookLM{payloads: map[string]any{}, raw: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/_/LabsTailwindUi/data/batchexecute", f.batchexecute)
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, fakeRequest{RPC: "media", Cookie: r.Header.Get("cookie")})
		f.mu.Unlock()
		w.Header().Set("content-type", "audio/mp4")
		fmt.Fprint(w, "ID3fake-audio")
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeNotebookLM) batchexecute(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.URL.Query().Get("rpcids")
	var freq [][][]any
	args := ""
	if err := json.Unmarshal([]byte(r.PostForm.Get("f.req")), &freq); err == nil && len(freq) > 0 && len(freq[0]) > 0 {
		args, _ = freq[0][0][1].(string)
	}

	f.mu.Lock()
	f.requests = append(f.requests, fakeRequest{
		RPC:        id,
		SourcePath: r.URL.Query().Get("source-path"),
		Args:       args,
		Cookie:     r.Header.Get("cookie"),
	})
	body, hasRaw := f.raw[id]
	payload, ok := f.payloads[id]
	f.mu.Unlock()

	if hasRaw {
		fmt.Fprint(w, body)
		return
	}
	if !ok {
		http.Error(w, "unexpected rpc "+id, http.StatusBadRequest)
		return
	}
	data, _ := json.Marshal(payload)
	env, _ := json.Marshal([]any{[]any{"wrb.fr", id, string(data), nil, nil, nil, "generic"}})
	fmt.Fprintf(w, ")]}'\n\n%d\n%s\n", len(env), env)
}

func (f *fakeNotebookLM) reqs() []fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeRequest(nil), f.requests...)
}

func (f *fakeNotebookLM) set(id string, payload any) {
	f.mu.Lock()
	f.payloads[id] = payload
	f.mu.Unlock()
}

func (f *fakeNotebookLM) setRaw(id, body string) {
	f.mu.Lock()
	f.raw[id] = body
	f.mu.Unlock()
}

func (f *fakeNotebookLM) client() *Client {
	return New(Credentials{AuthToken: "tok", Cookies: "SID=secret"},
		WithBaseURL(f.URL), WithHTTPClient(f.Server.Client()))
}

// Positional payloads mirroring what the NotebookLM frontend returns.
func notebooksPayload() any {
	return []any{[]any{
		[]any{"Alpha", []any{[]any{[]any{"s1"}}, []any{[]any{"s2"}}}, "nb1", "📘", nil,
			[]any{nil, nil, nil, nil, nil, []any{1700000000, 0}}},
		[]any{"Beta", []any{}, "nb2", nil, nil, nil},
		[]any{"missing id"},
	}}
}

func sourcesPayload() any {
	return []any{[]any{"Alpha", []any{
		[]any{[]any{"s1"}, "Doc One", []any{nil, nil, nil, nil, 3, nil, nil, []any{"https://example.com/a"}}, []any{nil, 2}},
		[]any{[]any{"s2"}, "Doc Two", []any{nil, nil, nil, nil, 5}, []any{nil, 1}},
	}, "nb1"}}
}

func fulltextPayload() any {
	return []any{
		[]any{[]any{"s1"}, "Doc One", []any{nil, nil, nil, nil, 3, nil, nil, []any{"https://example.com/a"}}},
		nil, nil,
		[]any{[]any{[]any{"Hello", []any{"world"}}, []any{"  "}, []any{"Ünïcode"}}},
	}
}

const mindMapJSON = `{"name":"Root","children":[{"name":"Leaf"}]}`

func notesPayload() any {
	return []any{[]any{
		[]any{"n1", []any{"n1", "Body text", []any{1, nil, []any{1700000000, 0}}, nil, "First"}},
		[]any{"n2", nil, 2},
		[]any{"m1", []any{"m1", mindMapJSON, nil, nil, "Map"}},
		[]any{"n3", []any{"n3", "{not json", nil, nil, ""}},
	}}
}

func artifactsPayload(mediaURL string) any {
	return []any{[]any{
		[]any{"a1", "Deep Dive", 1, []any{}, 3, nil,
			[]any{nil, nil, nil, nil, nil, []any{
				[]any{mediaURL + "?dash", nil, "application/dash+xml"},
				[]any{mediaURL, nil, "audio/mp4"},
			}}},
		[]any{"q1", "Quiz One", 4, []any{}, 3, nil, nil, nil, nil, []any{nil, []any{2}}},
		[]any{"f1", "Cards", 4, []any{}, 3, nil, nil, nil, nil, []any{nil, []any{1}}},
		[]any{"r1", "Report", 2, []any{}, 3},
		[]any{"p1", "Pending", 1, []any{}, 1},
	}}
}

func interactivePayload(app string) any {
	page := fmt.Sprintf(`<!doctype html><html><body><div id="app" data-app-data="%s"></div></body></html>`, html.EscapeString(app))
	return []any{[]any{nil, nil, nil, nil, nil, nil, nil, nil, nil, []any{page}}}
}

func TestListNotebooks(t *testing.T) {
	f := newFake(t)
	f.set("wXbhsf", notebooksPayload())

	got, err := f.client().ListNotebooks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []Notebook{
		{ID: "nb1", Title: "Alpha", Emoji: "📘", SourceCount: 2, CreatedAt: time.Unix(1700000000, 0).UTC()},
		{ID: "nb2", Title: "Beta"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListNotebooks() mismatch (-want +got):\n%s", diff)
	}
	if got := f.reqs()[0].Args; got != "[null,1,null,[2]]" {
		t.Errorf("args = %s", got)
	}
	if got := f.reqs()[0].SourcePath; got != "/" {
		t.Errorf("source-path = %q", got)
	}
}

func TestListNotebooksEmptyAccount(t *testing.T) {
	f := newFake(t)
	f.setRaw("wXbhsf", ")]}'\n"+`[["wrb.fr","wXbhsf",null,null,null,[16],"generic"]]`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := New(Credentials{AuthToken: "tok", Cookies: "SID=secret"},
		WithBaseURL(f.URL), WithHTTPClient(f.Server.Client()), WithLogger(logger))

	got, err := c.ListNotebooks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListNotebooks() = %#v, want empty slice", got)
	}
	if !strings.Contains(logs.String(), "code 16") {
		t.Errorf("no debug record for the code 16 answer:\n%s", logs.String())
	}
}

func TestListNotebooksError(t *testing.T) {
	f := newFake(t)
	f.setRaw("wXbhsf", ")]}'\n277566")
	if _, err := f.client().ListNotebooks(context.Background()); err == nil {
		t.Fatal("ListNotebooks() error = nil")
	}
}

func TestListSources(t *testing.T) {
	f := newFake(t)
	f.set("rLM1Ne", sourcesPayload())

	got, err := f.client().ListSources(context.Background(), "nb1")
	if err != nil {
		t.Fatal(err)
	}
	want := []Source{
		{ID: "s1", Title: "Doc One", URL: "https://example.com/a", Kind: SourceKindPDF, Status: SourceStatusReady},
		{ID: "s2", Title: "Doc Two", Kind: SourceKindWebPage, Status: SourceStatusProcessing},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListSources() mismatch (-want +got):\n%s", diff)
	}
	if !got[0].Ready() || got[1].Ready() {
		t.Errorf("Ready() = %v, %v; want true, false", got[0].Ready(), got[1].Ready())
	}
	if got := f.reqs()[0].SourcePath; got != "/notebook/nb1" {
		t.Errorf("source-path = %q", got)
	}
	if got := f.reqs()[0].Args; got != `["nb1",null,[2],null,0]` {
		t.Errorf("args = %s", got)
	}
}

func TestSourceFulltext(t *testing.T) {
	f := newFake(t)
	f.set("hizoJc", fulltextPayload())

	got, err := f.client().SourceFulltext(context.Background(), "nb1", "s1")
	if err != nil {
		t.Fatal(err)
	}
	want := Fulltext{
		SourceID:  "s1",
		Title:     "Doc One",
		URL:       "https://example.com/a",
		Kind:      SourceKindPDF,
		Content:   "Hello\nworld\nÜnïcode",
		CharCount: 19,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SourceFulltext() mismatch (-want +got):\n%s", diff)
	}
	if got := f.reqs()[0].Args; got != `[["s1"],[2],[2]]` {
		t.Errorf("args = %s", got)
	}
}

func TestSourceFulltextMissing(t *testing.T) {
	f := newFake(t)
	f.set("hizoJc", []any{})
	_, err := f.client().SourceFulltext(context.Background(), "nb1", "gone")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SourceFulltext() error = %v, want ErrNotFound", err)
	}
}

func TestListNotes(t *testing.T) {
	f := newFake(t)
	f.set("cFji9", notesPayload())

	got, err := f.client().ListNotes(context.Background(), "nb1")
	if err != nil {
		t.Fatal(err)
	}
	want := []Note{
		{ID: "n1", Title: "First", Content: "Body text", CreatedAt: time.Unix(1700000000, 0).UTC()},
		{ID: "n3", Content: "{not json"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListNotes() mismatch (-want +got):\n%s", diff)
	}
}

func TestListArtifacts(t *testing.T) {
	f := newFake(t)
	f.set("gArtLc", artifactsPayload(f.URL+"/media/a1"))
	f.set("cFji9", notesPayload())

	got, err := f.client().ListArtifacts(context.Background(), "nb1")
	if err != nil {
		t.Fatal(err)
	}
	want := []Artifact{
		{ID: "a1", Title: "Deep Dive", Kind: ArtifactKindAudio, Completed: true},
		{ID: "q1", Title: "Quiz One", Kind: ArtifactKindQuiz, Completed: true},
		{ID: "f1", Title: "Cards", Kind: ArtifactKindFlashcards, Completed: true},
		{ID: "r1", Title: "Report", Kind: ArtifactKindReport, Completed: true},
		{ID: "p1", Title: "Pending", Kind: ArtifactKindAudio},
		{ID: "m1", Title: "Map", Kind: ArtifactKindMindMap, Completed: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListArtifacts() mismatch (-want +got):\n%s", diff)
	}
	if got := f.reqs()[0].Args; got != `[[2],"nb1","NOT artifact.status = \"ARTIFACT_STATUS_SUGGESTED\""]` {
		t.Errorf("args = %s", got)
	}
}

func TestDownloadAudio(t *testing.T) {
	f := newFake(t)
	f.set("gArtLc", artifactsPayload(f.URL+"/media/a1"))
	path := filepath.Join(t.TempDir(), "deep_dive.mp3")

	if err := f.client().DownloadAudio(context.Background(), "nb1", "a1", path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ID3fake-audio" {
		t.Errorf("audio = %q", data)
	}
	reqs := f.reqs()
	media := reqs[len(reqs)-1]
	if media.RPC != "media" || media.Cookie != "SID=secret" {
		t.Errorf("media request = %+v, want cookie forwarded", media)
	}
}

func TestDownloadAudioOutlastsTimeout(t *testing.T) {
	const chunks = 4
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "audio/mp4")
		w.WriteHeader(http.StatusOK)
		for i := range chunks {
			fmt.Fprintf(w, "chunk%d;", i)
			w.(http.Flusher).Flush()
			time.Sleep(60 * time.Millisecond)
		}
	}))
	defer slow.Close()

	f := newFake(t)
	f.set("gArtLc", artifactsPayload(slow.URL+"/a1"))
	c := New(Credentials{AuthToken: "tok", Cookies: "SID=secret"},
		WithBaseURL(f.URL), WithHTTPClient(f.Server.Client()), WithTimeout(100*time.Millisecond))
	path := filepath.Join(t.TempDir(), "deep_dive.mp3")

	if err := c.DownloadAudio(context.Background(), "nb1", "a1", path); err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "chunk0;chunk1;chunk2;chunk3;"; string(data) != want {
		t.Errorf("audio = %q, want %q", data, want)
	}
	if c.http.Timeout != 100*time.Millisecond {
		t.Errorf("rpc timeout = %v, want 100ms", c.http.Timeout)
	}
}

func TestDownloadAudioCanceled(t *testing.T) {
	release := make(chan struct{})
	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "audio/mp4")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer stalled.Close()
	defer close(release)

	f := newFake(t)
	f.set("gArtLc", artifactsPayload(stalled.URL+"/a1"))
	c := f.client()
	path := filepath.Join(t.TempDir(), "stalled.mp3")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := c.DownloadAudio(ctx, "nb1", "a1", path); err == nil {
		t.Fatal("DownloadAudio succeeded after the context expired")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestDownloadAudioErrors(t *testing.T) {
	f := newFake(t)
	f.set("gArtLc", artifactsPayload(f.URL+"/media/a1"))
	c := f.client()
	dir := t.TempDir()
	ctx := context.Background()

	if err := c.DownloadAudio(ctx, "nb1", "p1", filepath.Join(dir, "p.mp3")); !errors.Is(err, ErrNotReady) {
		t.Errorf("pending audio: error = %v, want ErrNotReady", err)
	}
	if err := c.DownloadAudio(ctx, "nb1", "nope", filepath.Join(dir, "n.mp3")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown artifact: error = %v, want ErrNotFound", err)
	}
	if err := c.DownloadAudio(ctx, "nb1", "q1", filepath.Join(dir, "q.mp3")); err == nil {
		t.Error("quiz as audio: error = nil")
	}
	if _, err := os.Stat(filepath.Join(dir, "p.mp3")); !os.IsNotExist(err) {
		t.Errorf("file written for failed download: %v", err)
	}
}

func TestDownloadQuiz(t *testing.T) {
	f := newFake(t)
	f.set("gArtLc", artifactsPayload(""))
	f.set("v9rmvd", interactivePayload(`{"quiz":[{"question":"Capital of <b>France</b>?","hint":"Think baguettes","answerOptions":[{"text":"Berlin","isCorrect":false,"rationale":"No."},{"text":"Paris","isCorrect":true,"rationale":"Yes, Paris."}]}]}`))
	path := filepath.Join(t.TempDir(), "quiz.json")

	if err := f.client().DownloadQuiz(context.Background(), "nb1", "q1", path); err != nil {
		t.Fatal(err)
	}
	var got QuizExport
	readJSON(t, path, &got)
	want := QuizExport{
		Title: "Quiz One",
		Kind:  "quiz",
		Questions: []QuizQuestion{{
			Question:  "Capital of **France**?",
			Options:   []string{"Berlin", "Paris"},
			Answer:    "Paris",
			Hint:      "Think baguettes",
			Rationale: "Yes, Paris.",
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("quiz export mismatch (-want +got):\n%s", diff)
	}
}

func TestDownloadFlashcards(t *testing.T) {
	f := newFake(t)
	f.set("gArtLc", artifactsPayload(""))
	f.set("v9rmvd", interactivePayload(`{"flashcards":[{"f":"Front 1","b":"Back 1"},{"f":"Front 2","b":"Back 2"}]}`))
	path := filepath.Join(t.TempDir(), "cards.json")

	if err := f.client().DownloadQuiz(context.Background(), "nb1", "f1", path); err != nil {
		t.Fatal(err)
	}
	var got QuizExport
	readJSON(t, path, &got)
	want := QuizExport{
		Title: "Cards",
		Kind:  "flashcards",
		Cards: []Flashcard{{Front: "Front 1", Back: "Back 1"}, {Front: "Front 2", Back: "Back 2"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("flashcards export mismatch (-want +got):\n%s", diff)
	}
}

func TestDownloadQuizWithoutPage(t *testing.T) {
	f := newFake(t)
	f.set("gArtLc", artifactsPayload(""))
	f.set("v9rmvd", []any{[]any{nil}})
	err := f.client().DownloadQuiz(context.Background(), "nb1", "q1", filepath.Join(t.TempDir(), "q.json"))
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("DownloadQuiz() error = %v, want ErrNotReady", err)
	}
}

func TestDownloadMindMap(t *testing.T) {
	f := newFake(t)
	f.set("cFji9", notesPayload())
	path := filepath.Join(t.TempDir(), "map.json")

	c := f.client()
	if err := c.DownloadMindMap(context.Background(), "nb1", "m1", path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
  "name": "Root",
  "children": [
    {
      "name": "Leaf"
    }
  ]
}
`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("mind map mismatch (-want +got):\n%s", diff)
	}
	if err := c.DownloadMindMap(context.Background(), "nb1", "n1", path); !errors.Is(err, ErrNotFound) {
		t.Errorf("plain note as mind map: error = %v, want ErrNotFound", err)
	}
}

func TestMarkdown(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  plain text ", "plain text"},
		{"<b>bold</b> move", "**bold** move"},
		{"Fish &amp; chips", "Fish & chips"},
	}
	for _, tt := range tests {
		if got := markdown(tt.in); got != tt.want {
			t.Errorf("markdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArtifactKindString(t *testing.T) {
	if got := ArtifactKindMindMap.String(); got != "mind_map" {
		t.Errorf("String() = %q", got)
	}
	if got := ArtifactKind(42).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
	if got := SourceKind(99).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}
