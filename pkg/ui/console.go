package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Console is the interactive surface of the CLI: one input stream and one
// output sink.
type Console struct {
	In  io.Reader
	Out io.Writer
}

// NewConsole binds stdin and stdout
func NewConsole() *Console {
	return &Console{In: os.Stdin, Out: os.Stdout}
}

// Prompt prints label and reads a single line. The trailing newline and
// surrounding whitespace are removed.
func (c *Console) Prompt(label string) (string, error) {
	fmt.Fprint(c.Out, Cyan(label))

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Printf writes formatted text to the output sink
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}
