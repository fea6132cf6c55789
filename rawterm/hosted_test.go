//go:build !baremetal

package rawterm

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestGetchar(t *testing.T) {
	term := New(strings.NewReader("c\rq"), io.Discard)
	var got []byte
	for {
		ch, err := term.Getchar()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, ch)
	}
	if string(got) != "c\nq" {
		t.Errorf("Getchar read %q, want %q", got, "c\nq")
	}
}

func TestWrite(t *testing.T) {
	for _, tc := range []struct {
		in, out string
	}{
		{"", ""},
		{"state: advertising", "state: advertising"},
		{"one\ntwo\n", "one\r\ntwo\r\n"},
		{"\n\n", "\r\n\r\n"},
	} {
		var buf bytes.Buffer
		term := New(strings.NewReader(""), &buf)
		n, err := term.Write([]byte(tc.in))
		if err != nil || n != len(tc.in) {
			t.Errorf("Write(%q) = %d, %v", tc.in, n, err)
		}
		if buf.String() != tc.out {
			t.Errorf("Write(%q) wrote %q, want %q", tc.in, buf.String(), tc.out)
		}
	}
}

func TestNotATerminal(t *testing.T) {
	term := New(strings.NewReader(""), io.Discard)
	if term.IsTerminal() {
		t.Error("string reader reported as terminal")
	}
	if err := term.Configure(); err != nil {
		t.Errorf("Configure: %v", err)
	}
	if err := term.Restore(); err != nil {
		t.Errorf("Restore: %v", err)
	}
}
