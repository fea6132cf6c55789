//go:build !baremetal

// Package rawterm provides a raw terminal for the interactive simulator: single
// key presses are read without waiting for enter and without echo.
//
// Newlines are always LF (not CR or CRLF). While terminals generally use a
// different format (CR when pressing the enter key and CRLF for newline) the
// format returned by Getchar and expected by Write is a single LF as newline
// symbol.
package rawterm

import (
	"bufio"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/ssh/terminal"
)

// Terminal reads key presses from in and writes text to out.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int

	mu    sync.Mutex
	state *terminal.State
}

// New returns a terminal on in and out. Raw mode is only available when in is
// an *os.File connected to a terminal.
func New(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{
		in:  bufio.NewReader(in),
		out: out,
		fd:  -1,
	}
	if f, ok := in.(*os.File); ok {
		t.fd = int(f.Fd())
	}
	return t
}

// Stdio returns a terminal on stdin and stdout.
func Stdio() *Terminal {
	return New(os.Stdin, os.Stdout)
}

// IsTerminal reports whether the input is an interactive terminal.
func (t *Terminal) IsTerminal() bool {
	return t.fd >= 0 && terminal.IsTerminal(t.fd)
}

// Configure puts the terminal in raw mode. It must be restored after use with
// Restore:
//
//	term.Configure()
//	defer term.Restore()
//	// use raw terminal features
//
// Configure does nothing when the input is not a terminal.
func (t *Terminal) Configure() error {
	if !t.IsTerminal() {
		return nil
	}
	state, err := terminal.MakeRaw(t.fd)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
	return nil
}

// Restore restores the state to before a call to Configure. It may be called
// more than once.
func (t *Terminal) Restore() error {
	t.mu.Lock()
	state := t.state
	t.state = nil
	t.mu.Unlock()
	if state == nil {
		return nil
	}
	return terminal.Restore(t.fd, state)
}

// Getchar returns a single character. Newlines are encoded with a single LF
// ('\n').
func (t *Terminal) Getchar() (byte, error) {
	ch, err := t.in.ReadByte()
	if err != nil {
		return 0, err
	}
	if ch == '\r' {
		return '\n', nil
	}
	return ch, nil
}

// Write writes p to the terminal, expanding each LF to CRLF.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := 0
	for i, ch := range p {
		if ch != '\n' {
			continue
		}
		if _, err := t.out.Write(p[start:i]); err != nil {
			return start, err
		}
		// Terminals expect CRLF.
		if _, err := t.out.Write([]byte("\r\n")); err != nil {
			return i, err
		}
		start = i + 1
	}
	if _, err := t.out.Write(p[start:]); err != nil {
		return start, err
	}
	return len(p), nil
}
