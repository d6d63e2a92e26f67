package job

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/danshapiro/ccstrip/internal/scan"
	"github.com/danshapiro/ccstrip/internal/textenc"
)

type FileOptions struct {
	Encoding  string
	Overwrite bool
}

// FileResult describes one stripped (or checked) file. BytesIn is the size
// read from disk, before any decoding.
type FileResult struct {
	Input        string     `json:"input"`
	Output       string     `json:"output,omitempty"`
	CommentLines int        `json:"comment_lines"`
	BytesIn      int64      `json:"bytes_in"`
	BytesOut     int64      `json:"bytes_out"`
	FinalState   scan.State `json:"final_state"`
	Error        string     `json:"error,omitempty"`
}

// Unterminated reports whether the file ended inside a block comment or a
// literal.
func (r *FileResult) Unterminated() bool {
	return r != nil && r.FinalState.Unterminated()
}

func fileResult(in, out string, raw *countingReader, res scan.Result) *FileResult {
	return &FileResult{
		Input:        in,
		Output:       out,
		CommentLines: res.Lines,
		BytesIn:      raw.n,
		BytesOut:     res.BytesOut,
		FinalState:   res.FinalState,
	}
}

// StripFile writes in with comments removed to out. The output appears only
// once the whole input has been scanned; on any failure out is left as it
// was.
func StripFile(ctx context.Context, in, out string, opts FileOptions) (*FileResult, error) {
	src, info, err := openInput(in)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if same, err := samePath(in, out); err == nil && same {
		return nil, &OutputCreateError{Path: out, Err: fmt.Errorf("output would replace input")}
	}
	if !opts.Overwrite {
		if _, err := os.Lstat(out); err == nil {
			return nil, &OutputCreateError{Path: out, Err: fs.ErrExist}
		}
	}
	raw := &countingReader{r: src}
	r, err := textenc.NewReader(raw, opts.Encoding)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &OutputCreateError{Path: out, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(out)+".tmp-*")
	if err != nil {
		return nil, &OutputCreateError{Path: out, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	res, err := scan.Copy(ctx, w, r)
	if err != nil {
		return nil, fmt.Errorf("strip %s: %w", in, err)
	}
	if err := w.Flush(); err != nil {
		return nil, &OutputCreateError{Path: out, Err: err}
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return nil, &OutputCreateError{Path: out, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &OutputCreateError{Path: out, Err: err}
	}
	if err := os.Rename(tmpPath, out); err != nil {
		return nil, &OutputCreateError{Path: out, Err: err}
	}
	committed = true
	return fileResult(in, out, raw, res), nil
}

// CheckFile scans in without writing any output.
func CheckFile(ctx context.Context, in string, encoding string) (*FileResult, error) {
	src, _, err := openInput(in)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	raw := &countingReader{r: src}
	r, err := textenc.NewReader(raw, encoding)
	if err != nil {
		return nil, err
	}
	res, err := scan.Copy(ctx, io.Discard, r)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", in, err)
	}
	return fileResult(in, "", raw, res), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func openInput(path string) (*os.File, fs.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &InputOpenError{Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, &InputOpenError{Path: path, Err: err}
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, &InputOpenError{Path: path, Err: errors.New("is a directory")}
	}
	return f, info, nil
}

func samePath(a, b string) (bool, error) {
	sa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(sa, sb), nil
}
