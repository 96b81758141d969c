// Package frame turns an unbounded byte stream into discrete text records.
//
// The external audio monitor writes one JSON record per line, but pipe reads
// deliver bytes at arbitrary boundaries: a record may span several reads, and
// one read may contain several records. The Splitter accumulates the trailing
// unterminated fragment between chunks and yields every complete line exactly
// once, in order, regardless of where the chunk boundaries fall.
//
// A maximum buffered-fragment size bounds memory when the producer misbehaves
// (a record with no terminator would otherwise grow the buffer forever).
// Exceeding it fails the stream with ErrFrameTooLarge.
//
// On end-of-stream any trailing partial fragment is discarded: it represents
// truncated data from a dying process, not an error.
package frame
