package frame

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitter_SingleChunk(t *testing.T) {
	s := NewSplitter(0)

	lines, err := s.Push([]byte("one\ntwo\nthree\n"))
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	want := []string{"one", "two", "three"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if string(lines[i]) != w {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], w)
		}
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
}

func TestSplitter_RecordSpansChunks(t *testing.T) {
	// The same record stream split at every possible boundary must yield the
	// same records in the same order.
	const stream = "{\"id\":\"a\",\"volume\":50}\n{\"id\":\"a\",\"volume\":60}\n"
	want := []string{`{"id":"a","volume":50}`, `{"id":"a","volume":60}`}

	for cut := 0; cut <= len(stream); cut++ {
		s := NewSplitter(0)
		var got []string

		for _, chunk := range [][]byte{[]byte(stream[:cut]), []byte(stream[cut:])} {
			lines, err := s.Push(chunk)
			if err != nil {
				t.Fatalf("cut %d: Push() error = %v", cut, err)
			}
			for _, l := range lines {
				got = append(got, string(l))
			}
		}

		if len(got) != len(want) {
			t.Fatalf("cut %d: got %d lines %v, want %d", cut, len(got), got, len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("cut %d: line[%d] = %q, want %q", cut, i, got[i], want[i])
			}
		}
	}
}

func TestSplitter_ByteAtATime(t *testing.T) {
	s := NewSplitter(0)
	const stream = "hello\nworld\n"

	var got []string
	for i := 0; i < len(stream); i++ {
		lines, err := s.Push([]byte{stream[i]})
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		for _, l := range lines {
			got = append(got, string(l))
		}
	}

	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("got %v, want [hello world]", got)
	}
}

func TestSplitter_StripsCarriageReturn(t *testing.T) {
	s := NewSplitter(0)

	lines, err := s.Push([]byte("{\"id\":\"a\"}\r\nplain\n"))
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if string(lines[0]) != `{"id":"a"}` {
		t.Errorf("lines[0] = %q, want %q", lines[0], `{"id":"a"}`)
	}
	if string(lines[1]) != "plain" {
		t.Errorf("lines[1] = %q, want %q", lines[1], "plain")
	}
}

func TestSplitter_FragmentRetainedAcrossPush(t *testing.T) {
	s := NewSplitter(0)

	lines, err := s.Push([]byte("complete\npart"))
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(lines) != 1 || string(lines[0]) != "complete" {
		t.Fatalf("got %v, want [complete]", lines)
	}
	if s.Pending() != len("part") {
		t.Errorf("Pending() = %d, want %d", s.Pending(), len("part"))
	}

	lines, err = s.Push([]byte("ial\n"))
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(lines) != 1 || string(lines[0]) != "partial" {
		t.Errorf("got %v, want [partial]", lines)
	}
}

func TestSplitter_FrameTooLarge(t *testing.T) {
	s := NewSplitter(8)

	_, err := s.Push([]byte("way more than eight bytes without a newline"))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Push() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestSplitter_CompleteLinesEmittedBeforeOverflow(t *testing.T) {
	s := NewSplitter(8)

	lines, err := s.Push([]byte("ok\nthis fragment is far too long to buffer"))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Push() error = %v, want ErrFrameTooLarge", err)
	}
	if len(lines) != 1 || string(lines[0]) != "ok" {
		t.Errorf("got %v, want [ok] alongside the error", lines)
	}
}

func TestScan_DiscardsTrailingFragment(t *testing.T) {
	var got []string
	err := Scan(strings.NewReader("a\nb\ntrunc"), 0, func(line []byte) {
		got = append(got, string(line))
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestScan_FrameTooLarge(t *testing.T) {
	err := Scan(strings.NewReader(strings.Repeat("x", 100)), 16, func([]byte) {
		t.Error("emit called for unterminated oversized fragment")
	})
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Scan() error = %v, want ErrFrameTooLarge", err)
	}
}

// errReader yields some data then a non-EOF error.
type errReader struct {
	data []byte
	err  error
	done bool
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	n := copy(p, r.data)
	return n, nil
}

func TestScan_PropagatesReadError(t *testing.T) {
	wantErr := errors.New("pipe burst")
	var got []string

	err := Scan(&errReader{data: []byte("line\n"), err: wantErr}, 0, func(line []byte) {
		got = append(got, string(line))
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Scan() error = %v, want %v", err, wantErr)
	}
	if len(got) != 1 || got[0] != "line" {
		t.Errorf("got %v, want [line] before the error", got)
	}
}

func TestScan_EmptyStream(t *testing.T) {
	err := Scan(strings.NewReader(""), 0, func([]byte) {
		t.Error("emit called on empty stream")
	})
	if err != nil {
		t.Errorf("Scan() error = %v, want nil", err)
	}
}
