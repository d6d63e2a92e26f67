package scan

// Transition is the result of feeding one byte to Step.
type Transition struct {
	State State
	Flags Flags
	// Out[:N] is emitted to the output stream, in order.
	Out [2]byte
	N   int
	// Delta is added to the comment line count.
	Delta int
}

// Bytes returns the emitted bytes.
func (t Transition) Bytes() []byte {
	return t.Out[:t.N]
}

func (t *Transition) emit(c byte) {
	t.Out[t.N] = c
	t.N++
}

// Step computes the transition for byte c in state st with escape flags fl.
// It has no side effects.
func Step(st State, fl Flags, c byte) Transition {
	t := Transition{State: st, Flags: fl}
	switch st {
	case Normal:
		if c == '/' {
			t.State = AfterSlash
			return t
		}
		t.emit(c)
		t.openLiteral(c)

	case AfterSlash:
		switch c {
		case '/':
			t.State = LineComment
			t.Delta = 1
			return t
		case '*':
			t.State = BlockComment
			t.Delta = 1
			return t
		}
		t.emit('/')
		t.emit(c)
		t.State = Normal
		t.openLiteral(c)

	case LineComment:
		if c == '\n' {
			t.emit('\n')
			t.State = Normal
		}

	case BlockComment:
		switch c {
		case '\n':
			t.emit('\n')
			t.Delta = 1
		case '*':
			t.State = BlockCommentStar
		}

	case BlockCommentStar:
		switch c {
		case '/':
			t.State = Normal
		case '*':
			// still waiting for '/'
		case '\n':
			t.emit('\n')
			t.Delta = 1
			t.State = BlockComment
		default:
			t.State = BlockComment
		}

	case StringLiteral:
		t.emit(c)
		t.Flags.StringEscape = t.literal(fl.StringEscape, c, '"')

	case CharLiteral:
		t.emit(c)
		t.Flags.CharEscape = t.literal(fl.CharEscape, c, '\'')
	}
	return t
}

// openLiteral switches to a literal state when c is an opening quote.
func (t *Transition) openLiteral(c byte) {
	switch c {
	case '"':
		t.State = StringLiteral
		t.Flags.StringEscape = false
	case '\'':
		t.State = CharLiteral
		t.Flags.CharEscape = false
	}
}

// literal applies the escape rule shared by both literal kinds and returns
// the new escape flag. An escaped byte is always data: it neither closes the
// literal nor re-arms escaping.
func (t *Transition) literal(escaped bool, c, quote byte) bool {
	switch {
	case escaped:
		return false
	case c == '\\':
		return true
	case c == quote:
		t.State = Normal
	}
	return false
}

// Finish returns the bytes owed at end of input in state st. Only a pending
// '/' is owed; comment and literal states simply end.
func Finish(st State) []byte {
	if st == AfterSlash {
		return []byte{'/'}
	}
	return nil
}
