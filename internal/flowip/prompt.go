package flowip

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidLimit is returned by ParseLimit for negative or non-numeric input.
var ErrInvalidLimit = errors.New("limit must be a non-negative integer")

// ParseLimit interprets a limit answer. Blank input and "0" select def.
func ParseLimit(answer string, def int) (int, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, answer)
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}

// Prompter asks the interactive questions of the report generator.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	switch {
	case err == nil, err == io.EOF && line != "":
		return strings.TrimSpace(line), nil
	case err == io.EOF:
		return "", fmt.Errorf("no answer to %q: %w", strings.TrimSpace(question), io.ErrUnexpectedEOF)
	default:
		return "", err
	}
}

// Confirm asks a Y/N question. Only "y" or "Y" count as yes.
func (p *Prompter) Confirm(question string) (bool, error) {
	answer, err := p.ask(question + " (Y/N): ")
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y", nil
}

// ReportPath asks for the report file name until the user picks a new file or agrees to overwrite.
func (p *Prompter) ReportPath(exists func(string) bool) (string, error) {
	for {
		name, err := p.ask("Specify a filename for the report: ")
		if err != nil {
			return "", err
		}
		if name == "" {
			continue
		}
		if !exists(name) {
			return name, nil
		}
		ok, err := p.Confirm("File exists, would you like to overwrite?")
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
}

// DEDir asks for a detection engine directory. An answer of "s" skips and returns "".
func (p *Prompter) DEDir() (string, error) {
	answer, err := p.ask("\nIf you would like CPU affinity info enter de directory (or 's' to skip): ")
	if err != nil {
		return "", err
	}
	if answer == "s" || answer == "S" {
		fmt.Fprintln(p.out, "\nSkipping de info!")
		return "", nil
	}
	return answer, nil
}

// Selection asks which classes to include until it gets 1 to 4.
func (p *Prompter) Selection() (Selection, error) {
	for {
		answer, err := p.ask("\nSelect the data to include in the report:\n" +
			"1) tcp         2) udp\n" +
			"3) other       4) all \n" +
			"Data to include in report: ")
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= int(SelectTCP) && n <= int(SelectAll) {
			return Selection(n), nil
		}
		fmt.Fprintf(p.out, "\nInvalid entry '%s'\n", answer)
	}
}

// SortKey shows the numbered key menu for class c until a valid entry is chosen.
func (p *Prompter) SortKey(c Class) (Field, error) {
	fields := classFields[c]
	var menu strings.Builder
	fmt.Fprintf(&menu, "\nSelect the %s field to sort by:\n", c)
	for i, f := range fields {
		fmt.Fprintf(&menu, "%d) %s\n", i+1, f)
	}
	menu.WriteString("Sort by: ")

	for {
		answer, err := p.ask(menu.String())
		if err != nil {
			return "", err
		}
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(fields) {
			return fields[n-1], nil
		}
		if f, parseErr := ParseField(c, answer); parseErr == nil && !f.IsIP() {
			return f, nil
		}
		fmt.Fprintf(p.out, "\nInvalid entry '%s'\n", answer)
	}
}

// Limit asks for the per-interval limit. Blank or 0 selects def; negative or
// non-numeric answers are asked again.
func (p *Prompter) Limit(def int) (int, error) {
	for {
		answer, err := p.ask(fmt.Sprintf("\nEnter the number of top talkers to keep per time period (enter or 0 for %d): ", def))
		if err != nil {
			return 0, err
		}
		n, parseErr := ParseLimit(answer, def)
		if parseErr == nil {
			return n, nil
		}
		fmt.Fprintf(p.out, "\nInvalid limit '%s'\n", answer)
	}
}
