// Package token defines the tagged-variant Token type produced by the lexer
// and consumed, rewritten, and re-emitted by the preprocessor.
package token

import "github.com/overturf/cfgc/source"

type Type int

const (
	Invalid Type = iota
	Identifier
	Integer
	Float
	String
	Punct
	Newline
	Whitespace
	LineComment
	BlockComment
	DirectiveIntroducer // a '#' that is the first non-whitespace token on its logical line
	EOF
)

func (t Type) String() string {
	switch t {
	case Identifier:
		return "identifier"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Punct:
		return "punct"
	case Newline:
		return "newline"
	case Whitespace:
		return "whitespace"
	case LineComment:
		return "line-comment"
	case BlockComment:
		return "block-comment"
	case DirectiveIntroducer:
		return "directive-introducer"
	case EOF:
		return "eof"
	default:
		return "invalid"
	}
}

// Token is the unit the lexer produces and the preprocessor/parser consume.
// Every token carries a Span; only Identifier/Integer/Float/String/Punct
// tokens carry meaningful Text/decoded values.
type Token struct {
	Type Type
	Span source.Span
	// Text is the raw lexeme exactly as it appeared in source (or, for a
	// token born from macro substitution, as it was synthesized).
	Text string

	// IntValue/FloatValue/StringValue hold the decoded payload for the
	// corresponding literal Types. StringRaw preserves the original
	// quoted-and-escaped form so diagnostics can quote faithfully.
	IntValue   int64
	FloatValue float64
	StringValue string
	StringRaw   string
}

// Is reports whether t has the given Type and Text. Useful for
// matching keywords ("class", "defined", ...) without a separate keyword
// TokenType, mirroring how punctuation is distinguished by Text rather than
// by a separate Type per symbol.
func (t Token) Is(typ Type, text string) bool {
	return t.Type == typ && t.Text == text
}

// IsTrivia reports whether the token is whitespace, a comment, or a line
// continuation marker the config grammar never looks at directly. The
// preprocessor keeps trivia inside macro argument lists; stringify collapses
// it to single spaces.
func (t Token) IsTrivia() bool {
	switch t.Type {
	case Whitespace, LineComment, BlockComment:
		return true
	default:
		return false
	}
}

var eof = Token{Type: EOF, Text: ""}

// EOFAt returns a sentinel end-of-stream token anchored at pos.
func EOFAt(pos source.Position) Token {
	t := eof
	t.Span = source.Span{Start: pos, End: pos}
	return t
}
