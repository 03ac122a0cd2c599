package core

import (
	"io"
	"testing"
)

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eof", ErrEof, false},
		{"decode error", NewDecodeError("bad frame"), false},
		{"reset required", ErrResetRequired, false},
		{"io error", NewIOError(io.ErrUnexpectedEOF), true},
		{"unsupported", NewUnsupportedError("unknown codec"), true},
		{"plain error", io.ErrClosedPipe, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsFatal(c.err); got != c.want {
				t.Errorf("IsFatal(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}
