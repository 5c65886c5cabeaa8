// Package selector asks the user to choose one notebook from a list.
package selector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tmc/nbdl/internal/api"
	"github.com/tmc/nbdl/internal/console"
	"github.com/tmc/nbdl/internal/prompt"
)

// Prompt is shown before each line of input.
const Prompt = "\nSelect notebook (number or name, Tab to complete): "

// LineReader reads one line of input. Returning prompt.ErrInterrupted or
// io.EOF cancels the selection.
type LineReader interface {
	ReadLine(ctx context.Context, prompt string, suggestions []string) (string, error)
}

// Kind classifies the outcome of resolving one line of input.
type Kind int

const (
	Empty      Kind = iota // blank input
	Selected               // exactly one notebook chosen
	OutOfRange             // numeric input outside 1..N
	Ambiguous              // several titles contain the input
	NotFound               // nothing matches
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Selected:
		return "selected"
	case OutOfRange:
		return "out of range"
	case Ambiguous:
		return "ambiguous"
	case NotFound:
		return "not found"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Resolution is the result of Resolve.
type Resolution struct {
	Kind     Kind
	Notebook api.Notebook   // set when Kind is Selected
	Matches  []api.Notebook // set when Kind is Ambiguous
}

// Resolve maps one line of input to a notebook. Digits select by 1-based
// position. Otherwise a case-insensitive exact title match wins, then a
// unique case-insensitive substring match.
func Resolve(notebooks []api.Notebook, input string) Resolution {
	input = strings.TrimSpace(input)
	if input == "" {
		return Resolution{Kind: Empty}
	}
	if isDigits(input) {
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(notebooks) {
			return Resolution{Kind: OutOfRange}
		}
		return Resolution{Kind: Selected, Notebook: notebooks[n-1]}
	}

	lower := strings.ToLower(input)
	for _, nb := range notebooks {
		if strings.ToLower(nb.Title) == lower {
			return Resolution{Kind: Selected, Notebook: nb}
		}
	}
	var partial []api.Notebook
	for _, nb := range notebooks {
		if strings.Contains(strings.ToLower(nb.Title), lower) {
			partial = append(partial, nb)
		}
	}
	switch len(partial) {
	case 0:
		return Resolution{Kind: NotFound}
	case 1:
		return Resolution{Kind: Selected, Notebook: partial[0]}
	}
	return Resolution{Kind: Ambiguous, Matches: partial}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Selector renders the notebook table and reads the user's choice.
type Selector struct {
	Notebooks []api.Notebook
	Input     LineReader
	Console   *console.Console
}

// Pick returns the chosen notebook, or ok == false when the list is empty
// or the user cancels. Invalid input is reported and the user is asked
// again.
func (s *Selector) Pick(ctx context.Context) (api.Notebook, bool, error) {
	if len(s.Notebooks) == 0 {
		s.Console.Error("No notebooks found.")
		return api.Notebook{}, false, nil
	}
	s.Console.Table("Your Notebooks", []string{"#", "Title", "Sources", "Created"}, s.rows(), 0, 2)

	suggestions := s.suggestions()
	for {
		line, err := s.Input.ReadLine(ctx, Prompt, suggestions)
		if errors.Is(err, prompt.ErrInterrupted) || errors.Is(err, io.EOF) {
			return api.Notebook{}, false, nil
		}
		if err != nil {
			return api.Notebook{}, false, err
		}

		res := Resolve(s.Notebooks, line)
		switch res.Kind {
		case Selected:
			return res.Notebook, true, nil
		case OutOfRange:
			s.Console.Error("Number out of range (1–%d).", len(s.Notebooks))
		case Ambiguous:
			titles := make([]string, len(res.Matches))
			for i, m := range res.Matches {
				titles[i] = strconv.Quote(m.Title)
			}
			s.Console.Warn("Multiple notebooks match: %s", strings.Join(titles, ", "))
		case NotFound:
			s.Console.Error("No notebook found with that name.")
		}
	}
}

func (s *Selector) rows() [][]string {
	rows := make([][]string, len(s.Notebooks))
	for i, nb := range s.Notebooks {
		created := "—"
		if !nb.CreatedAt.IsZero() {
			created = nb.CreatedAt.Format("2006-01-02")
		}
		rows[i] = []string{strconv.Itoa(i + 1), nb.Title, strconv.Itoa(nb.SourceCount), created}
	}
	return rows
}

// suggestions lists every title followed by every index.
func (s *Selector) suggestions() []string {
	out := make([]string, 0, 2*len(s.Notebooks))
	for _, nb := range s.Notebooks {
		out = append(out, nb.Title)
	}
	for i := range s.Notebooks {
		out = append(out, fmt.Sprint(i+1))
	}
	return out
}
