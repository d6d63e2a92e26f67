package job

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/danshapiro/ccstrip/internal/scan"
)

func TestStripFile_WritesStrippedOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), "int x; // set x\n/* a\n b */ int y;\n")
	out := filepath.Join(dir, "nested", "out.c")

	res, err := StripFile(context.Background(), in, out, FileOptions{})
	if err != nil {
		t.Fatalf("StripFile: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "int x; \n\n int y;\n"; got != want {
		t.Fatalf("output: got %q want %q", got, want)
	}
	if res.CommentLines != 3 {
		t.Fatalf("comment lines: got %d want 3", res.CommentLines)
	}
	if res.BytesOut != int64(len(b)) {
		t.Fatalf("bytes out: got %d want %d", res.BytesOut, len(b))
	}
	if res.FinalState != scan.Normal {
		t.Fatalf("final state: %v", res.FinalState)
	}
	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestStripFile_InputOpenError(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.c")
	_, err := StripFile(context.Background(), filepath.Join(dir, "missing.c"), out, FileOptions{})
	var inErr *InputOpenError
	if !errors.As(err, &inErr) {
		t.Fatalf("got %T %v, want *InputOpenError", err, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist in chain: %v", err)
	}
	if _, statErr := os.Stat(out); !errors.Is(statErr, fs.ErrNotExist) {
		t.Fatalf("output should not exist after input failure")
	}

	_, err = StripFile(context.Background(), dir, out, FileOptions{})
	if !errors.As(err, &inErr) {
		t.Fatalf("directory input: got %T %v, want *InputOpenError", err, err)
	}
}

func TestStripFile_OutputCreateError(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), "x;\n")

	// Parent of the output is a regular file.
	blocker := writeFile(t, filepath.Join(dir, "blocker"), "")
	_, err := StripFile(context.Background(), in, filepath.Join(blocker, "out.c"), FileOptions{})
	var outErr *OutputCreateError
	if !errors.As(err, &outErr) {
		t.Fatalf("got %T %v, want *OutputCreateError", err, err)
	}
	var inErr *InputOpenError
	if errors.As(err, &inErr) {
		t.Fatalf("output failure reported as input failure: %v", err)
	}

	_, err = StripFile(context.Background(), in, in, FileOptions{Overwrite: true})
	if !errors.As(err, &outErr) {
		t.Fatalf("in==out: got %T %v, want *OutputCreateError", err, err)
	}
}

func TestStripFile_RefusesExistingOutputUnlessOverwrite(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), "a /* c */ b\n")
	out := writeFile(t, filepath.Join(dir, "out.c"), "keep me\n")

	_, err := StripFile(context.Background(), in, out, FileOptions{})
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("got %v, want fs.ErrExist", err)
	}
	if b, _ := os.ReadFile(out); string(b) != "keep me\n" {
		t.Fatalf("existing output modified: %q", b)
	}

	if _, err := StripFile(context.Background(), in, out, FileOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if b, _ := os.ReadFile(out); string(b) != "a  b\n" {
		t.Fatalf("got %q", b)
	}
}

func TestStripFile_CancelledLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), strings.Repeat("int x; // c\n", 1000))
	out := filepath.Join(dir, "out.c")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StripFile(ctx, in, out, FileOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want context.Canceled", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the input to remain, got %d entries", len(entries))
	}
}

func TestStripFile_PreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), "x;\n")
	if err := os.Chmod(in, 0o640); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.c")
	if _, err := StripFile(context.Background(), in, out, FileOptions{}); err != nil {
		t.Fatal(err)
	}
	st, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o640 {
		t.Fatalf("mode: got %v want 0640", st.Mode().Perm())
	}
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), "s = \"// no\"; /* open\n")
	res, err := CheckFile(context.Background(), in, "")
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if res.Output != "" {
		t.Fatalf("check should not name an output: %q", res.Output)
	}
	if res.CommentLines != 2 || !res.Unterminated() {
		t.Fatalf("res: %+v", res)
	}
}

func TestStripFile_PreservesNonUTF8LiteralBytes(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), "char *s = \"caf\xe9\"; /* x */ char c = '\xff';\n")
	out := filepath.Join(dir, "out.c")

	res, err := StripFile(context.Background(), in, out, FileOptions{})
	if err != nil {
		t.Fatalf("StripFile: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), "char *s = \"caf\xe9\";  char c = '\xff';\n"; got != want {
		t.Fatalf("output:\n got %q\nwant %q", got, want)
	}
	if res.CommentLines != 1 {
		t.Fatalf("comment lines: got %d want 1", res.CommentLines)
	}
}

func TestStripFile_CommentFreeHighBytesUnchanged(t *testing.T) {
	var src []byte
	src = append(src, "int x = 1;\nchar s[] = \""...)
	for c := 0x80; c <= 0xff; c++ {
		src = append(src, byte(c))
	}
	src = append(src, "\";\n"...)
	for c := 0x80; c <= 0xff; c++ {
		src = append(src, byte(c))
	}
	src = append(src, '\n')

	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in.c"), string(src))
	out := filepath.Join(dir, "out.c")
	res, err := StripFile(context.Background(), in, out, FileOptions{})
	if err != nil {
		t.Fatalf("StripFile: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, src) {
		t.Fatalf("bytes altered:\n got %q\nwant %q", b, src)
	}
	if res.CommentLines != 0 {
		t.Fatalf("comment lines: got %d want 0", res.CommentLines)
	}
	if res.BytesIn != int64(len(src)) || res.BytesOut != int64(len(src)) {
		t.Fatalf("bytes: in=%d out=%d want %d", res.BytesIn, res.BytesOut, len(src))
	}
}

func TestStripFile_BytesInCountsRawFileSize(t *testing.T) {
	dir := t.TempDir()
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("s = \"é\"; // ñ\n"))
	if err != nil {
		t.Fatal(err)
	}
	in := writeFile(t, filepath.Join(dir, "in.c"), string(raw))

	res, err := CheckFile(context.Background(), in, "latin1")
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if res.BytesIn != int64(len(raw)) {
		t.Fatalf("bytes in: got %d want file size %d", res.BytesIn, len(raw))
	}

	res, err = StripFile(context.Background(), in, filepath.Join(dir, "out.c"), FileOptions{Encoding: "latin1"})
	if err != nil {
		t.Fatalf("StripFile: %v", err)
	}
	if res.BytesIn != int64(len(raw)) {
		t.Fatalf("bytes in: got %d want file size %d", res.BytesIn, len(raw))
	}
	// Decoded output is UTF-8: "é" grows to two bytes.
	if got, want := res.BytesOut, int64(len("s = \"é\"; \n")); got != want {
		t.Fatalf("bytes out: got %d want %d", got, want)
	}
}
