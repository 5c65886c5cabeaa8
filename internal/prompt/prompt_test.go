package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
)

func TestLines(t *testing.T) {
	var out bytes.Buffer
	r := NewLines(strings.NewReader("first\r\n  second  \nlast"), &out)
	ctx := context.Background()

	for _, want := range []string{"first", "  second  ", "last"} {
		got, err := r.ReadLine(ctx, "> ", nil)
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != want {
			t.Errorf("ReadLine = %q, want %q", got, want)
		}
	}
	if _, err := r.ReadLine(ctx, "> ", nil); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine at end = %v, want io.EOF", err)
	}
	if got := out.String(); got != "> > > > " {
		t.Errorf("prompts = %q", got)
	}
}

func TestLinesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewLines(strings.NewReader("x\n"), nil)
	if _, err := r.ReadLine(ctx, "", nil); !errors.Is(err, ErrInterrupted) {
		t.Errorf("err = %v, want ErrInterrupted", err)
	}
}

func TestLinesCancelBlockedRead(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewLines(pr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.ReadLine(ctx, "> ", nil)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrInterrupted) {
			t.Errorf("err = %v, want ErrInterrupted", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadLine did not return after the context was canceled")
	}

	// The reader stays usable for later input.
	go pw.Write([]byte("later\n"))
	got, err := r.ReadLine(context.Background(), "> ", nil)
	if err != nil || got != "later" {
		t.Errorf("ReadLine after cancel = %q, %v; want \"later\"", got, err)
	}
}

func TestNewNonTerminal(t *testing.T) {
	if _, ok := New(strings.NewReader(""), io.Discard).(*Lines); !ok {
		t.Error("New on a non-terminal reader should return *Lines")
	}
}

func update(m lineModel, msg tea.Msg) lineModel {
	next, _ := m.Update(msg)
	return next.(lineModel)
}

func TestLineModelSubmit(t *testing.T) {
	m := newLineModel("> ", []string{"1", "Beta"})
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("be")})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(lineModel)
	if !m.done || m.value != "be" || m.err != nil {
		t.Errorf("after enter: done=%v value=%q err=%v", m.done, m.value, m.err)
	}
	if cmd == nil {
		t.Error("enter should quit the program")
	}
	if got := m.View(); got != "> be\n" {
		t.Errorf("View = %q", got)
	}
}

func TestLineModelComplete(t *testing.T) {
	suggestions := []string{"Alpha", "Beta", "Alphabet", "1", "2"}
	tests := []struct {
		name  string
		typed string
		tabs  int
		want  string
	}{
		{"unique", "be", 1, "Beta"},
		{"ignores case", "AL", 1, "Alpha"},
		{"cycles", "al", 2, "Alphabet"},
		{"wraps", "al", 3, "Alpha"},
		{"no match", "zz", 1, "zz"},
		{"index", "2", 1, "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newLineModel("> ", suggestions)
			m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.typed)})
			for range tt.tabs {
				m = update(m, tea.KeyMsg{Type: tea.KeyTab})
			}
			if got := m.input.Value(); got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLineModelCompleteThenEdit(t *testing.T) {
	m := newLineModel("> ", []string{"Alpha", "Alphabet"})
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("alpha")})
	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	if got := m.input.Value(); got != "Alpha" {
		t.Fatalf("value = %q, want Alpha", got)
	}
	if !strings.Contains(m.View(), "Alpha  Alphabet") {
		t.Errorf("View does not list matches:\n%s", m.View())
	}

	// Typing starts a new completion from the edited text.
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.value != "Alphabet" {
		t.Errorf("submitted %q, want Alphabet", m.value)
	}
}

func TestComplete(t *testing.T) {
	got := Complete([]string{"Alpha", "beta", "ALPHABET"}, "aL")
	if diff := cmp.Diff([]string{"Alpha", "ALPHABET"}, got); diff != "" {
		t.Errorf("Complete (-want +got):\n%s", diff)
	}
	if got := Complete([]string{"a", "b"}, ""); len(got) != 2 {
		t.Errorf("Complete with empty prefix = %v, want all", got)
	}
}

func TestLineModelCancel(t *testing.T) {
	tests := []struct {
		name  string
		typed string
		key   tea.KeyType
		want  error
	}{
		{"ctrl-c", "", tea.KeyCtrlC, ErrInterrupted},
		{"esc", "abc", tea.KeyEsc, ErrInterrupted},
		{"ctrl-d empty", "", tea.KeyCtrlD, io.EOF},
		{"ctrl-d with text", "abc", tea.KeyCtrlD, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newLineModel("> ", nil)
			if tt.typed != "" {
				m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(tt.typed)})
			}
			m = update(m, tea.KeyMsg{Type: tt.key})
			if !errors.Is(m.err, tt.want) || (tt.want == nil && m.err != nil) {
				t.Errorf("err = %v, want %v", m.err, tt.want)
			}
			if m.done {
				t.Error("cancel should not submit")
			}
		})
	}
}
