package api

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// at walks a decoded positional payload by index, returning nil when any
// step is missing or not a list.
func at(v any, path ...int) any {
	for _, i := range path {
		l, ok := v.([]any)
		if !ok || i < 0 || i >= len(l) {
			return nil
		}
		v = l[i]
	}
	return v
}

func str(v any, path ...int) string {
	s, _ := at(v, path...).(string)
	return s
}

func num(v any, path ...int) (int, bool) {
	n, ok := at(v, path...).(float64)
	return int(n), ok
}

func list(v any, path ...int) []any {
	l, _ := at(v, path...).([]any)
	return l
}

// timestamp decodes a [seconds, nanos] pair.
func timestamp(v any) time.Time {
	sec, ok := num(v, 0)
	if !ok || sec <= 0 {
		return time.Time{}
	}
	nanos, _ := num(v, 1)
	return time.Unix(int64(sec), int64(nanos)).UTC()
}

func decode(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseNotebook reads [title, sources, id, emoji, _, meta]. The source
// count is the length of the embedded source list.
func parseNotebook(v any) (Notebook, bool) {
	id := str(v, 2)
	if id == "" {
		return Notebook{}, false
	}
	return Notebook{
		ID:          id,
		Title:       strings.TrimSpace(str(v, 0)),
		Emoji:       str(v, 3),
		SourceCount: len(list(v, 1)),
		CreatedAt:   timestamp(at(v, 5, 5)),
	}, true
}

// parseSource reads [[id], title, meta, status]. meta[4] is the kind code
// and meta[7] holds the URL; status[1] is the processing state.
func parseSource(v any) (Source, bool) {
	id := str(v, 0, 0)
	if id == "" {
		return Source{}, false
	}
	s := Source{
		ID:    id,
		Title: str(v, 1),
		URL:   str(v, 2, 7, 0),
	}
	if k, ok := num(v, 2, 4); ok {
		s.Kind = SourceKind(k)
	}
	if st, ok := num(v, 3, 1); ok {
		s.Status = SourceStatus(st)
	}
	return s, true
}

// parseFulltext reads a hizoJc payload: data[0] describes the source and
// data[3] holds nested content blocks.
func parseFulltext(sourceID string, v any) Fulltext {
	ft := Fulltext{
		SourceID: sourceID,
		Title:    str(v, 0, 1),
		URL:      str(v, 0, 2, 7, 0),
	}
	if k, ok := num(v, 0, 2, 4); ok {
		ft.Kind = SourceKind(k)
	}
	var parts []string
	collectText(at(v, 3), &parts)
	ft.Content = strings.Join(parts, "\n")
	ft.CharCount = utf8.RuneCountInString(ft.Content)
	return ft
}

func collectText(v any, out *[]string) {
	switch v := v.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			*out = append(*out, v)
		}
	case []any:
		for _, item := range v {
			collectText(item, out)
		}
	}
}

// noteItem is an entry of the cFji9 payload: [id, [id, content, meta, _, title]].
// Deleted notes carry a status code instead of the inner list.
type noteItem struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
}

func parseNoteItem(v any) (noteItem, bool) {
	id := str(v, 0)
	inner := list(v, 1)
	if id == "" || inner == nil {
		return noteItem{}, false
	}
	return noteItem{
		ID:        id,
		Title:     str(inner, 4),
		Content:   str(inner, 1),
		CreatedAt: timestamp(at(inner, 2, 2)),
	}, true
}

// isMindMap reports whether a note's content is a mind-map tree.
func (n noteItem) isMindMap() bool {
	c := strings.TrimSpace(n.Content)
	if !strings.HasPrefix(c, "{") {
		return false
	}
	var tree struct {
		Name     *string           `json:"name"`
		Children []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal([]byte(c), &tree); err != nil {
		return false
	}
	return tree.Name != nil || tree.Children != nil
}

// Artifact type codes in gArtLc payloads.
const (
	artifactTypeAudio       = 1
	artifactTypeReport      = 2
	artifactTypeVideo       = 3
	artifactTypeQuiz        = 4 // quiz or flashcards, see variant
	artifactTypeMindMap     = 5
	artifactTypeInfographic = 7
	artifactTypeSlideDeck   = 8
	artifactTypeDataTable   = 9

	artifactStatusCompleted = 3
)

// parseArtifact reads [id, title, type, sources, status, _, media, ..., variant].
func parseArtifact(v any) (Artifact, bool) {
	id := str(v, 0)
	if id == "" {
		return Artifact{}, false
	}
	a := Artifact{ID: id, Title: str(v, 1)}
	code, _ := num(v, 2)
	switch code {
	case artifactTypeAudio:
		a.Kind = ArtifactKindAudio
	case artifactTypeReport:
		a.Kind = ArtifactKindReport
	case artifactTypeVideo:
		a.Kind = ArtifactKindVideo
	case artifactTypeQuiz:
		a.Kind = ArtifactKindQuiz
		if variant, _ := num(v, 9, 1, 0); variant == 1 {
			a.Kind = ArtifactKindFlashcards
		}
	case artifactTypeMindMap:
		a.Kind = ArtifactKindMindMap
	case artifactTypeInfographic:
		a.Kind = ArtifactKindInfographic
	case artifactTypeSlideDeck:
		a.Kind = ArtifactKindSlideDeck
	case artifactTypeDataTable:
		a.Kind = ArtifactKindDataTable
	}
	status, _ := num(v, 4)
	a.Completed = status == artifactStatusCompleted
	return a, true
}

// audioURL picks the media URL of an audio artifact, preferring audio/mp4.
func audioURL(v any) string {
	var first string
	for _, m := range list(v, 6, 5) {
		u := str(m, 0)
		if u == "" {
			continue
		}
		if str(m, 2) == "audio/mp4" {
			return u
		}
		if first == "" {
			first = u
		}
	}
	return first
}
