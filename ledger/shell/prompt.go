package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ReadSecret prints prompt to out and reads one line from f without echo.
func ReadSecret(f *os.File, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// lineReader reads trimmed lines, hiding secrets when the input is a
// terminal.
type lineReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	tty     *os.File
}

func newLineReader(in io.Reader, out io.Writer) *lineReader {
	r := &lineReader{scanner: bufio.NewScanner(in), out: out}
	if f, ok := in.(*os.File); ok && IsTerminal(f) {
		r.tty = f
	}
	return r
}

// ask prints prompt and returns the next input line. io.EOF is returned
// once the input is exhausted.
func (r *lineReader) ask(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		fmt.Fprintln(r.out)
		return "", io.EOF
	}
	return strings.TrimSpace(r.scanner.Text()), nil
}

func (r *lineReader) askSecret(prompt string) (string, error) {
	if r.tty == nil {
		return r.ask(prompt)
	}
	return ReadSecret(r.tty, r.out, prompt)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
