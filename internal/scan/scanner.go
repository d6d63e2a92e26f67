package scan

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// Scanner is a streaming comment stripper. It is an io.Writer: bytes written
// to it are scanned and the surviving bytes are written to the destination.
// State carries across Write calls, so input may be split anywhere.
//
// A Scanner is not safe for concurrent use.
type Scanner struct {
	w     io.Writer
	state State
	flags Flags
	lines int
	buf   []byte

	closed bool
	err    error
}

// NewScanner returns a Scanner writing stripped output to w.
func NewScanner(w io.Writer) *Scanner {
	return &Scanner{w: w}
}

// Write scans p. Once the destination fails, every later call returns the
// same error.
func (s *Scanner) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.closed {
		return 0, errScannerClosed
	}
	s.buf = s.buf[:0]
	for _, c := range p {
		t := Step(s.state, s.flags, c)
		s.state = t.State
		s.flags = t.Flags
		s.lines += t.Delta
		s.buf = append(s.buf, t.Out[:t.N]...)
	}
	if err := s.flush(s.buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close emits any byte still owed at end of input. It does not close the
// destination. Calling Close again is a no-op.
func (s *Scanner) Close() error {
	if s.closed {
		return s.err
	}
	s.closed = true
	if s.err != nil {
		return s.err
	}
	tail := Finish(s.state)
	if len(tail) > 0 {
		// The pending '/' was code, not the start of a comment.
		s.state = Normal
	}
	return s.flush(tail)
}

func (s *Scanner) flush(b []byte) error {
	if len(b) == 0 || s.w == nil {
		return nil
	}
	if _, err := s.w.Write(b); err != nil {
		s.err = err
		return err
	}
	return nil
}

// Lines returns the number of physical lines touched by comments so far.
func (s *Scanner) Lines() int { return s.lines }

// State returns the current scanner state.
func (s *Scanner) State() State { return s.state }

// Flags returns the current escape flags.
func (s *Scanner) Flags() Flags { return s.flags }

// Reset clears all scan state and retargets the Scanner at w.
func (s *Scanner) Reset(w io.Writer) {
	*s = Scanner{w: w, buf: s.buf[:0]}
}

var errScannerClosed = errors.New("scan: write after close")

// Strip scans src in one pass and returns the stripped bytes and the comment
// line count.
func Strip(src []byte) ([]byte, int) {
	var out bytes.Buffer
	out.Grow(len(src))
	s := NewScanner(&out)
	// bytes.Buffer writes do not fail.
	_, _ = s.Write(src)
	_ = s.Close()
	return out.Bytes(), s.Lines()
}

// Result summarises a Copy. BytesIn counts bytes read from src, which are the
// bytes the scanner saw.
type Result struct {
	Lines      int   `json:"comment_lines"`
	BytesIn    int64 `json:"bytes_in"`
	BytesOut   int64 `json:"bytes_out"`
	FinalState State `json:"final_state"`
}

const copyBufSize = 32 * 1024

// Copy scans src to dst until EOF. ctx is checked between reads; on
// cancellation the partial output already written to dst should be
// discarded by the caller.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (Result, error) {
	cw := &countingWriter{w: dst}
	s := NewScanner(cw)
	buf := make([]byte, copyBufSize)
	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			res.BytesIn += int64(n)
			if _, err := s.Write(buf[:n]); err != nil {
				return res, err
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return res, rerr
		}
	}
	if err := s.Close(); err != nil {
		return res, err
	}
	res.FinalState = s.State()
	res.Lines = s.Lines()
	res.BytesOut = cw.n
	return res, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
