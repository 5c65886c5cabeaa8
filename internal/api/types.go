package api

import "time"

// Notebook is a NotebookLM project as listed on the home page.
type Notebook struct {
	ID          string
	Title       string
	Emoji       string
	SourceCount int
	CreatedAt   time.Time // zero when unknown
}

// Note is a saved note in a notebook.
type Note struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time // zero when unknown
}

// SourceStatus is the processing state of a source.
type SourceStatus int

const (
	SourceStatusUnknown    SourceStatus = 0
	SourceStatusProcessing SourceStatus = 1
	SourceStatusReady      SourceStatus = 2
	SourceStatusError      SourceStatus = 3
)

// SourceKind is the content kind of a source.
type SourceKind int

const (
	SourceKindUnknown      SourceKind = 0
	SourceKindGoogleDocs   SourceKind = 1
	SourceKindGoogleSlides SourceKind = 2
	SourceKindPDF          SourceKind = 3
	SourceKindPastedText   SourceKind = 4
	SourceKindWebPage      SourceKind = 5
	SourceKindMarkdown     SourceKind = 8
	SourceKindYouTube      SourceKind = 9
	SourceKindAudio        SourceKind = 10
	SourceKindDocx         SourceKind = 11
	SourceKindImage        SourceKind = 13
	SourceKindGoogleSheets SourceKind = 14
)

var sourceKindNames = map[SourceKind]string{
	SourceKindGoogleDocs:   "google_docs",
	SourceKindGoogleSlides: "google_slides",
	SourceKindPDF:          "pdf",
	SourceKindPastedText:   "pasted_text",
	SourceKindWebPage:      "web_page",
	SourceKindMarkdown:     "markdown",
	SourceKindYouTube:      "youtube",
	SourceKindAudio:        "audio",
	SourceKindDocx:         "docx",
	SourceKindImage:        "image",
	SourceKindGoogleSheets: "google_sheets",
}

func (k SourceKind) String() string {
	if s, ok := sourceKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Source is a document ingested into a notebook.
type Source struct {
	ID     string
	Title  string
	URL    string
	Kind   SourceKind
	Status SourceStatus
}

// Ready reports whether the source finished processing.
func (s Source) Ready() bool { return s.Status == SourceStatusReady }

// Fulltext is the indexed text of a single source.
type Fulltext struct {
	SourceID  string
	Title     string
	URL       string
	Kind      SourceKind
	Content   string
	CharCount int
}

// ArtifactKind identifies what a studio artifact contains.
type ArtifactKind int

const (
	ArtifactKindUnknown ArtifactKind = iota
	ArtifactKindAudio
	ArtifactKindReport
	ArtifactKindVideo
	ArtifactKindQuiz
	ArtifactKindFlashcards
	ArtifactKindMindMap
	ArtifactKindInfographic
	ArtifactKindSlideDeck
	ArtifactKindDataTable
)

var artifactKindNames = [...]string{
	ArtifactKindUnknown:     "unknown",
	ArtifactKindAudio:       "audio",
	ArtifactKindReport:      "report",
	ArtifactKindVideo:       "video",
	ArtifactKindQuiz:        "quiz",
	ArtifactKindFlashcards:  "flashcards",
	ArtifactKindMindMap:     "mind_map",
	ArtifactKindInfographic: "infographic",
	ArtifactKindSlideDeck:   "slide_deck",
	ArtifactKindDataTable:   "data_table",
}

func (k ArtifactKind) String() string {
	if k < 0 || int(k) >= len(artifactKindNames) {
		return "unknown"
	}
	return artifactKindNames[k]
}

// Artifact is a generated studio output (audio overview, quiz, ...).
type Artifact struct {
	ID        string
	Title     string
	Kind      ArtifactKind
	Completed bool
}
