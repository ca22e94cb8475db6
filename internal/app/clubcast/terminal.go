package clubcast

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Terminal asks the interactive questions the core components need.
// All prompts block until answered.
type Terminal struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewTerminal wires the process stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{In: bufio.NewReader(os.Stdin), Out: os.Stdout}
}

// Input reads one visible line.
func (t *Terminal) Input(label string) (string, error) {
	fmt.Fprintf(t.Out, "%s: ", label)
	line, err := t.In.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret reads a credential without echoing it when stdin is a
// terminal, falling back to a visible read otherwise.
func (t *Terminal) Secret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return t.Input(label)
	}
	fmt.Fprintf(t.Out, "%s: ", label)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(t.Out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// Confirm asks a yes/no question, defaulting to no.
func (t *Terminal) Confirm(label string) (bool, error) {
	fmt.Fprintf(t.Out, "%s [y/N]: ", label)
	line, err := t.In.ReadString('\n')
	if err != nil {
		return false, err
	}
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes", nil
}

// Choose lists numbered options and reads an index, defaulting to 0.
func (t *Terminal) Choose(label string, options []string) (int, error) {
	for i, opt := range options {
		fmt.Fprintf(t.Out, " [%d] %s\n", i, opt)
	}
	fmt.Fprintf(t.Out, "\n%s [0]: ", label)
	line, err := t.In.ReadString('\n')
	if err != nil {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}
	idx, err := strconv.Atoi(line)
	if err != nil || idx < 0 || idx >= len(options) {
		return 0, fmt.Errorf("invalid selection %q", line)
	}
	return idx, nil
}
