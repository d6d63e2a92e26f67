// Package scan removes C/C++ comments from a byte stream while preserving
// string and character literals verbatim and newline positions. It also
// counts the physical lines touched by comment text.
//
// The scanner is a single finite-state machine consuming one byte at a time.
// Step is the pure transition function; Scanner threads its state across
// arbitrary chunk boundaries so any I/O strategy can drive it.
package scan

// State is the mode the scanner occupies between bytes.
type State uint8

const (
	Normal State = iota
	// AfterSlash holds a '/' until the next byte decides whether it opens a
	// comment.
	AfterSlash
	LineComment
	BlockComment
	// BlockCommentStar is a block comment whose last byte was '*'.
	BlockCommentStar
	StringLiteral
	CharLiteral
)

var stateNames = [...]string{
	Normal:           "normal",
	AfterSlash:       "after_slash",
	LineComment:      "line_comment",
	BlockComment:     "block_comment",
	BlockCommentStar: "block_comment_star",
	StringLiteral:    "string_literal",
	CharLiteral:      "char_literal",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// InComment reports whether s is inside a line or block comment.
func (s State) InComment() bool {
	return s == LineComment || s == BlockComment || s == BlockCommentStar
}

// InLiteral reports whether s is inside a string or character literal.
func (s State) InLiteral() bool {
	return s == StringLiteral || s == CharLiteral
}

// Unterminated reports whether a stream ending in s left a block comment or a
// literal open. A line comment running to end of input is not unterminated.
func (s State) Unterminated() bool {
	return s == BlockComment || s == BlockCommentStar || s.InLiteral()
}

// MarshalText lets reports carry the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Flags are the per-literal escape markers. A flag is set by an unescaped
// backslash inside the matching literal and cleared by the very next byte.
type Flags struct {
	StringEscape bool
	CharEscape   bool
}
