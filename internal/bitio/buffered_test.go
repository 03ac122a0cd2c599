package bitio

import (
	"bytes"
	"io"
	"testing"
)

func TestBufferedSourceRewindWithinWindow(t *testing.T) {
	b := NewBufferedSource(bytes.NewReader([]byte("0123456789")), 4)
	buf := make([]byte, 6)
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "012345" {
		t.Fatalf("got %q, want %q", buf, "012345")
	}
	if err := b.Rewind(3); err != nil {
		t.Fatal(err)
	}
	rest := make([]byte, 4)
	if _, err := io.ReadFull(b, rest); err != nil {
		t.Fatal(err)
	}
	if string(rest) != "3456" {
		t.Fatalf("got %q after rewind, want %q", rest, "3456")
	}
}

func TestBufferedSourceRewindPastWindowFails(t *testing.T) {
	b := NewBufferedSource(bytes.NewReader([]byte("0123456789")), 4)
	buf := make([]byte, 8)
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatal(err)
	}
	if err := b.Rewind(5); err == nil {
		t.Fatal("expected Rewind past the retained window to fail")
	}
	if err := b.Rewind(4); err != nil {
		t.Fatalf("Rewind(4) should still be within a 4-byte window: %v", err)
	}
}

func TestBufferedSourceSeekMirrorsRewind(t *testing.T) {
	b := NewBufferedSource(bytes.NewReader([]byte("abcdefgh")), 8)
	buf := make([]byte, 5)
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Seek(-2, io.SeekCurrent); err != nil {
		t.Fatal(err)
	}
	rest := make([]byte, 4)
	if _, err := io.ReadFull(b, rest); err != nil {
		t.Fatal(err)
	}
	if string(rest) != "defg" {
		t.Fatalf("got %q after Seek(-2), want %q", rest, "defg")
	}
	if _, err := b.Seek(1, io.SeekCurrent); err == nil {
		t.Fatal("expected a forward Seek to fail")
	}
	if _, err := b.Seek(0, io.SeekStart); err == nil {
		t.Fatal("expected a SeekStart to fail")
	}
}
