package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultMaxFrameSize is the default bound on a single buffered fragment.
	// One telemetry record is a few hundred bytes; anything approaching this
	// limit means the producer has stopped terminating its records.
	DefaultMaxFrameSize = 1 << 20 // 1MB

	// readChunkSize is the buffer size for reads from the subprocess pipe.
	readChunkSize = 4096
)

// ErrFrameTooLarge is returned when an unterminated fragment exceeds the
// configured maximum frame size. The stream is unusable past this point.
var ErrFrameTooLarge = errors.New("frame: record exceeds maximum frame size")

// Splitter extracts newline-delimited records from byte chunks arriving at
// arbitrary boundaries.
//
// It is a plain accumulator with no goroutines or channels; callers feed it
// chunks with Push and receive every newly completed record. A record is never
// dropped because it spanned two chunks.
//
// Splitter is not safe for concurrent use. The monitor feeds it from a single
// stream-pump goroutine.
type Splitter struct {
	buf []byte
	max int
}

// NewSplitter creates a Splitter with the given maximum frame size.
// A max of 0 or less selects DefaultMaxFrameSize.
func NewSplitter(max int) *Splitter {
	if max <= 0 {
		max = DefaultMaxFrameSize
	}
	return &Splitter{max: max}
}

// Push appends a chunk to the accumulation buffer and returns every complete
// record it now holds, in order. Each returned line is an independent copy
// with the trailing newline (and carriage return, if any) removed.
//
// Returns ErrFrameTooLarge if the trailing unterminated fragment exceeds the
// maximum frame size; the Splitter must not be used afterwards.
func (s *Splitter) Push(chunk []byte) ([][]byte, error) {
	s.buf = append(s.buf, chunk...)

	var lines [][]byte
	for {
		idx := bytes.IndexByte(s.buf, '\n')
		if idx < 0 {
			break
		}
		line := s.buf[:idx]
		// The child is a Windows process; its records end in CRLF.
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, append([]byte(nil), line...))
		s.buf = s.buf[idx+1:]
	}

	if len(s.buf) > s.max {
		return lines, fmt.Errorf("%w: %d bytes buffered without terminator (max %d)",
			ErrFrameTooLarge, len(s.buf), s.max)
	}
	return lines, nil
}

// Pending returns the size of the buffered unterminated fragment.
func (s *Splitter) Pending() int {
	return len(s.buf)
}

// Scan reads r to end-of-stream, emitting every complete record through emit.
//
// On EOF the trailing partial fragment (if any) is discarded and Scan returns
// nil. A fragment exceeding max fails the scan with ErrFrameTooLarge; any
// other read error is returned as-is. Records already extracted from a chunk
// are always emitted before the chunk's error is reported.
func Scan(r io.Reader, max int, emit func(line []byte)) error {
	s := NewSplitter(max)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			lines, splitErr := s.Push(buf[:n])
			for _, line := range lines {
				emit(line)
			}
			if splitErr != nil {
				return splitErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
