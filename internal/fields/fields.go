// Package fields parses and resolves the column selection shared by every
// file in a run. The selection is both the projection and the dedup key.
package fields

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ErrNoFields is returned when no field selection could be resolved.
var ErrNoFields = errors.New("no fields selected")

// Selection is an ascending, de-duplicated list of 1-based column positions.
type Selection []int

// String renders the selection in cut-style list form, e.g. "1,2,5".
func (s Selection) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// Names returns the header names at the selected positions.
func (s Selection) Names(header []string) []string {
	names := make([]string, len(s))
	for i, p := range s {
		if p-1 < len(header) {
			names[i] = header[p-1]
		}
	}
	return names
}

// Max returns the largest selected position, or 0 for an empty selection.
func (s Selection) Max() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// term is one parsed selector: a position range or a column name.
type term struct {
	lo, hi int
	name   string
}

// Spec is a parsed but unresolved field selection. Names need a header to resolve.
type Spec struct {
	terms []term
}

// Empty reports whether the spec selects nothing.
func (s Spec) Empty() bool {
	return len(s.terms) == 0
}

// Parse reads selector tokens. Each token may hold a comma-separated list of
// positions ("3"), ranges ("2-4") or column names.
func Parse(tokens []string) (Spec, error) {
	var spec Spec
	for _, tok := range tokens {
		for _, part := range strings.Split(tok, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := parseTerm(part)
			if err != nil {
				return Spec{}, err
			}
			spec.terms = append(spec.terms, t)
		}
	}
	if spec.Empty() {
		return Spec{}, ErrNoFields
	}
	return spec, nil
}

func parseTerm(s string) (term, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return term{}, fmt.Errorf("field %d: positions are 1-based", n)
		}
		return term{lo: n, hi: n}, nil
	}

	if lo, hi, ok := strings.Cut(s, "-"); ok {
		l, errL := strconv.Atoi(strings.TrimSpace(lo))
		h, errH := strconv.Atoi(strings.TrimSpace(hi))
		if errL == nil && errH == nil {
			if l < 1 || h < l {
				return term{}, fmt.Errorf("invalid field range %q", s)
			}
			return term{lo: l, hi: h}, nil
		}
	}

	return term{name: s}, nil
}

// Resolve turns the spec into positions against header. Names match exactly
// first, then case-insensitively. Positions past the header width are errors.
func (s Spec) Resolve(header []string) (Selection, error) {
	seen := make(map[int]bool)
	var sel Selection
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			sel = append(sel, p)
		}
	}

	for _, t := range s.terms {
		if t.name != "" {
			p, err := lookup(header, t.name)
			if err != nil {
				return nil, err
			}
			add(p)
			continue
		}
		if t.hi > len(header) {
			return nil, fmt.Errorf("field %d out of range: header has %d columns", t.hi, len(header))
		}
		for p := t.lo; p <= t.hi; p++ {
			add(p)
		}
	}

	if len(sel) == 0 {
		return nil, ErrNoFields
	}
	sort.Ints(sel)
	return sel, nil
}

func lookup(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i + 1, nil
		}
	}
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("column %q not found in header", name)
}

// PromptText is printed after the numbered column list.
const PromptText = "Comma delimited field #'s to group by: "

// Prompt lists header as a 1-based numbered menu on w and reads one line of
// comma-separated selectors from r.
func Prompt(r io.Reader, w io.Writer, header []string) (Spec, error) {
	for i, name := range header {
		fmt.Fprintf(w, "%d. %s\n", i+1, name)
	}
	fmt.Fprint(w, PromptText)

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return Spec{}, ErrNoFields
		}
		return Spec{}, fmt.Errorf("reading field selection: %w", err)
	}
	return Parse([]string{strings.TrimSpace(line)})
}
