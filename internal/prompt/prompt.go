// Package prompt reads single lines of user input, with autocomplete when
// attached to a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the user aborts input with Ctrl-C or Esc.
var ErrInterrupted = errors.New("interrupted")

// Reader reads one line of input per call. It returns ErrInterrupted or
// io.EOF when the user cancels.
type Reader interface {
	ReadLine(ctx context.Context, prompt string, suggestions []string) (string, error)
}

// New returns a Terminal when in is a terminal and a Lines reader otherwise.
func New(in io.Reader, out io.Writer) Reader {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &Terminal{In: f, Out: out}
	}
	return NewLines(in, out)
}

// Lines reads newline-terminated input from any reader. Suggestions are
// ignored.
type Lines struct {
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewLines returns a Lines reader. The prompt is written to out; out may be nil.
func NewLines(in io.Reader, out io.Writer) *Lines {
	return &Lines{in: in, out: out}
}

// ReadLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF. If ctx is done before a line
// arrives, ReadLine returns ErrInterrupted; the pending read is kept for the
// next call.
func (l *Lines) ReadLine(ctx context.Context, prompt string, _ []string) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInterrupted
	}
	l.once.Do(l.start)
	if l.out != nil {
		fmt.Fprint(l.out, prompt)
	}
	select {
	case <-ctx.Done():
		return "", ErrInterrupted
	case res, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

// start feeds l.lines from a background reader. The channel is closed at
// end of input.
func (l *Lines) start() {
	l.lines = make(chan lineResult)
	go func() {
		defer close(l.lines)
		r := bufio.NewReader(l.in)
		for {
			line, err := r.ReadString('\n')
			if line != "" {
				l.lines <- lineResult{line: strings.TrimRight(line, "\r\n")}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					l.lines <- lineResult{err: err}
				}
				return
			}
		}
	}()
}

// Terminal reads input through an interactive line editor that offers
// completion of the supplied suggestions with Tab.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

func (t *Terminal) ReadLine(ctx context.Context, prompt string, suggestions []string) (string, error) {
	p := tea.NewProgram(newLineModel(prompt, suggestions),
		tea.WithInput(t.In),
		tea.WithOutput(t.Out),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrInterrupted
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	m := final.(lineModel)
	if m.err != nil {
		return "", m.err
	}
	return m.value, nil
}

// lineModel is the bubbletea model behind Terminal. Tab completes the
// input against the suggestions; repeated Tab cycles through the matches.
type lineModel struct {
	input       textinput.Model
	suggestions []string
	matches     []string
	next        int
	value       string
	done        bool
	err         error
}

// maxListed bounds the matches shown under the input.
const maxListed = 5

func newLineModel(prompt string, suggestions []string) lineModel {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = "number or name"
	in.CharLimit = 200
	in.Focus()
	return lineModel{input: in, suggestions: suggestions}
}

func (m lineModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m lineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.value = m.input.Value()
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.err = ErrInterrupted
			return m, tea.Quit
		case tea.KeyCtrlD:
			if m.input.Value() == "" {
				m.err = io.EOF
				return m, tea.Quit
			}
		case tea.KeyTab:
			m.complete()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.cycling() {
		return m, cmd
	}
	m.matches = nil
	return m, cmd
}

// cycling reports whether the input still holds the last completion.
func (m lineModel) cycling() bool {
	return len(m.matches) > 0 && m.input.Value() == m.matches[m.next]
}

func (m *lineModel) complete() {
	if m.cycling() {
		m.next = (m.next + 1) % len(m.matches)
	} else {
		m.matches = Complete(m.suggestions, m.input.Value())
		m.next = 0
		if len(m.matches) == 0 {
			return
		}
	}
	m.input.SetValue(m.matches[m.next])
	m.input.CursorEnd()
}

// Complete returns the suggestions that start with prefix, ignoring case,
// in their original order.
func Complete(suggestions []string, prefix string) []string {
	prefix = strings.ToLower(prefix)
	var out []string
	for _, s := range suggestions {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			out = append(out, s)
		}
	}
	return out
}

func (m lineModel) View() string {
	switch {
	case m.done:
		return m.input.Prompt + m.value + "\n"
	case m.err != nil:
		return m.input.Prompt + "\n"
	}
	view := m.input.View() + "\n"
	if len(m.matches) > 1 {
		listed := m.matches
		if len(listed) > maxListed {
			listed = listed[:maxListed]
		}
		view += "  " + strings.Join(listed, "  ")
		if n := len(m.matches) - len(listed); n > 0 {
			view += fmt.Sprintf("  (+%d more)", n)
		}
		view += "\n"
	}
	return view
}
