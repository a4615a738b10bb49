// Package lexer provides a UTF-8-aware lexical analyzer for the config
// language's source text. It breaks a single logical source unit into a
// lazy, finite, non-restartable sequence of Tokens, preserving whitespace
// and comments as first-class tokens: the preprocessor needs them to find
// directive line boundaries and to keep the original formatting of
// string-producing macro expansions.
//
// Grounded on the teacher's lexer.Lexer (byte-slice cursor, regexp dispatch
// table keyed by the current byte, Cursor.AdvancedBy line/column tracking),
// generalized with float literals, decoded string escapes, and the
// directive-introducer/additional punctuation the config grammar needs that
// a C/C++ preprocessor guard scanner does not.
package lexer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

var (
	reContinueLine  = regexp.MustCompile(`^\\[\t\v\f\r ]*\n`)
	reIdentifier    = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*`)
	reHexInteger    = regexp.MustCompile(`^0[xX][0-9a-fA-F]+`)
	reFloat         = regexp.MustCompile(`^[0-9]+\.[0-9]*(?:[eE][+-]?[0-9]+)?|^[0-9]+[eE][+-]?[0-9]+|^\.[0-9]+(?:[eE][+-]?[0-9]+)?`)
	reDecimalInt    = regexp.MustCompile(`^[0-9]+`)
)

// twoCharPuncts must be checked before their one-character prefixes.
var twoCharPuncts = []string{"+=", "##", "==", "!=", "<=", ">=", "&&", "||"}

var oneCharPuncts = "{};,[](=:#+-*/!<>&|"

// Lexer turns the bytes of one logical source unit into a Token stream.
type Lexer struct {
	file source.Handle
	data []byte
	pos  source.Position
	sink diag.Sink

	// atLineStart tracks whether the next non-whitespace byte would be the
	// first on its logical line, for directive-introducer recognition.
	atLineStart bool
}

// New constructs a Lexer over the bytes of file, reporting lex errors to sink.
func New(file source.Handle, data []byte, sink diag.Sink) *Lexer {
	data = stripBOM(data)
	return &Lexer{
		file:        file,
		data:        data,
		pos:         source.Position{File: file, Offset: 0, Line: 1, Column: 1},
		sink:        sink,
		atLineStart: true,
	}
}

func stripBOM(data []byte) []byte {
	const bom = "\xef\xbb\xbf"
	if len(data) >= 3 && string(data[:3]) == bom {
		return data[3:]
	}
	return data
}

func (lx *Lexer) makeSpan(length int) source.Span {
	start := lx.pos
	end := start.Advanced(string(lx.data[:length]))
	return source.Span{Start: start, End: end}
}

func (lx *Lexer) advance(length int) {
	lx.pos = lx.pos.Advanced(string(lx.data[:length]))
	lx.data = lx.data[length:]
}

func (lx *Lexer) report(code diag.Code, span source.Span, format string, args ...any) {
	if lx.sink != nil {
		lx.sink.Report(diag.New(code, span, format, args...))
	}
}

// Next returns the next token, or an EOF token once the input is exhausted.
// Next never returns an error; malformed input is reported to the sink and
// the lexer resumes at the next plausible boundary (a newline), per the
// error-handling design's LexError recovery rule.
func (lx *Lexer) Next() token.Token {
	if len(lx.data) == 0 {
		return token.EOFAt(lx.pos)
	}

	c := lx.data[0]
	switch {
	case c == '\n':
		return lx.emitNewline()
	case c == '\t' || c == '\v' || c == '\f' || c == '\r' || c == ' ':
		return lx.emitWhitespace()
	case c == '\\':
		return lx.emitContinuation()
	case c == '"':
		return lx.emitString()
	case c == '/' && strings.HasPrefix(string(lx.data), "//"):
		return lx.emitLineComment()
	case c == '/' && strings.HasPrefix(string(lx.data), "/*"):
		return lx.emitBlockComment()
	case c == '#' && lx.atLineStart:
		return lx.emitOne(token.DirectiveIntroducer)
	default:
		if tok, ok := lx.tryPunct(); ok {
			return tok
		}
		if match := reIdentifier.FindString(string(lx.data)); match != "" {
			return lx.emitIdentifier(match)
		}
		if tok, ok := lx.tryNumber(); ok {
			return tok
		}
		return lx.emitInvalidByte()
	}
}

func (lx *Lexer) setLineStart(v bool) { lx.atLineStart = v }

func (lx *Lexer) emitNewline() token.Token {
	span := lx.makeSpan(1)
	tok := token.Token{Type: token.Newline, Span: span, Text: "\n"}
	lx.advance(1)
	lx.setLineStart(true)
	return tok
}

func (lx *Lexer) emitWhitespace() token.Token {
	n := 0
	for n < len(lx.data) {
		switch lx.data[n] {
		case '\t', '\v', '\f', '\r', ' ':
			n++
		default:
			goto done
		}
	}
done:
	span := lx.makeSpan(n)
	text := string(lx.data[:n])
	tok := token.Token{Type: token.Whitespace, Span: span, Text: text}
	lx.advance(n)
	return tok
}

func (lx *Lexer) emitContinuation() token.Token {
	if m := reContinueLine.Find(lx.data); m != nil {
		span := lx.makeSpan(len(m))
		tok := token.Token{Type: token.Whitespace, Span: span, Text: string(m)}
		lx.advance(len(m))
		return tok
	}
	lx.report(diag.CodeLexError, lx.makeSpan(1), "backslash not followed by newline")
	return lx.recoverAtNewline()
}

func (lx *Lexer) emitLineComment() token.Token {
	n := strings.IndexByte(string(lx.data), '\n')
	if n < 0 {
		n = len(lx.data)
	}
	span := lx.makeSpan(n)
	tok := token.Token{Type: token.LineComment, Span: span, Text: string(lx.data[:n])}
	lx.advance(n)
	return tok
}

func (lx *Lexer) emitBlockComment() token.Token {
	rest := string(lx.data[2:])
	idx := strings.Index(rest, "*/")
	if idx < 0 {
		lx.report(diag.CodeLexError, lx.makeSpan(len(lx.data)), "unterminated block comment")
		tok := token.Token{Type: token.BlockComment, Span: lx.makeSpan(len(lx.data)), Text: string(lx.data)}
		lx.advance(len(lx.data))
		lx.setLineStart(false)
		return tok
	}
	n := idx + 2 + 2
	span := lx.makeSpan(n)
	tok := token.Token{Type: token.BlockComment, Span: span, Text: string(lx.data[:n])}
	lx.advance(n)
	lx.setLineStart(false)
	return tok
}

// emitString lexes a "..." literal, honoring the doubled-quote escape
// convention ("" inside a string denotes one embedded quote) and never
// crossing a raw newline.
func (lx *Lexer) emitString() token.Token {
	i := 1
	var decoded strings.Builder
	for {
		if i >= len(lx.data) {
			lx.report(diag.CodeLexError, lx.makeSpan(i), "unterminated string literal")
			span := lx.makeSpan(i)
			tok := token.Token{Type: token.String, Span: span, Text: string(lx.data[:i]), StringRaw: string(lx.data[:i]), StringValue: decoded.String()}
			lx.advance(i)
			lx.setLineStart(false)
			return tok
		}
		if lx.data[i] == '\n' {
			lx.report(diag.CodeLexError, lx.makeSpan(i), "unterminated string literal before newline")
			span := lx.makeSpan(i)
			tok := token.Token{Type: token.String, Span: span, Text: string(lx.data[:i]), StringRaw: string(lx.data[:i]), StringValue: decoded.String()}
			lx.advance(i)
			lx.setLineStart(false)
			return tok
		}
		if lx.data[i] == '"' {
			if i+1 < len(lx.data) && lx.data[i+1] == '"' {
				decoded.WriteByte('"')
				i += 2
				continue
			}
			i++
			break
		}
		decoded.WriteByte(lx.data[i])
		i++
	}
	span := lx.makeSpan(i)
	text := string(lx.data[:i])
	tok := token.Token{Type: token.String, Span: span, Text: text, StringRaw: text, StringValue: decoded.String()}
	lx.advance(i)
	lx.setLineStart(false)
	return tok
}

func (lx *Lexer) emitIdentifier(match string) token.Token {
	span := lx.makeSpan(len(match))
	tok := token.Token{Type: token.Identifier, Span: span, Text: match}
	lx.advance(len(match))
	lx.setLineStart(false)
	return tok
}

// tryNumber recognizes hex integers, decimal integers, and floats (including
// scientific notation and a trailing '.' with no fractional digits, which is
// a float per the language's lexical rules). Sign is never part of the
// literal; it is lexed separately as punctuation.
func (lx *Lexer) tryNumber() (token.Token, bool) {
	s := string(lx.data)
	if m := reHexInteger.FindString(s); m != "" {
		v, err := strconv.ParseInt(m[2:], 16, 64)
		span := lx.makeSpan(len(m))
		tok := token.Token{Type: token.Integer, Span: span, Text: m}
		if err == nil {
			tok.IntValue = v
		}
		lx.advance(len(m))
		lx.setLineStart(false)
		return tok, true
	}
	if m := reFloat.FindString(s); m != "" {
		v, _ := strconv.ParseFloat(m, 64)
		span := lx.makeSpan(len(m))
		tok := token.Token{Type: token.Float, Span: span, Text: m, FloatValue: v}
		lx.advance(len(m))
		lx.setLineStart(false)
		return tok, true
	}
	if m := reDecimalInt.FindString(s); m != "" {
		// A trailing '.' with no fractional digits is still a float.
		if len(s) > len(m) && s[len(m)] == '.' {
			full := m + "."
			j := len(full)
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			// reFloat above already matches both digits-after-dot and a
			// bare trailing dot, so this branch is a fallback only.
			if j == len(full) {
				v, _ := strconv.ParseFloat(full, 64)
				span := lx.makeSpan(len(full))
				tok := token.Token{Type: token.Float, Span: span, Text: full, FloatValue: v}
				lx.advance(len(full))
				lx.setLineStart(false)
				return tok, true
			}
		}
		v, err := strconv.ParseInt(m, 10, 64)
		span := lx.makeSpan(len(m))
		tok := token.Token{Type: token.Integer, Span: span, Text: m}
		if err == nil {
			tok.IntValue = v
		} else {
			// Overflows 64-bit signed: widen to float, caller (parser) warns.
			f, _ := strconv.ParseFloat(m, 64)
			tok.Type = token.Float
			tok.FloatValue = f
		}
		lx.advance(len(m))
		lx.setLineStart(false)
		return tok, true
	}
	return token.Token{}, false
}

func (lx *Lexer) tryPunct() (token.Token, bool) {
	s := string(lx.data)
	for _, p := range twoCharPuncts {
		if strings.HasPrefix(s, p) {
			span := lx.makeSpan(len(p))
			tok := token.Token{Type: token.Punct, Span: span, Text: p}
			lx.advance(len(p))
			lx.setLineStart(false)
			return tok, true
		}
	}
	if strings.IndexByte(oneCharPuncts, lx.data[0]) >= 0 {
		return lx.emitOne(token.Punct), true
	}
	return token.Token{}, false
}

func (lx *Lexer) emitOne(typ token.Type) token.Token {
	span := lx.makeSpan(1)
	tok := token.Token{Type: typ, Span: span, Text: string(lx.data[0])}
	lx.advance(1)
	lx.setLineStart(false)
	return tok
}

func (lx *Lexer) emitInvalidByte() token.Token {
	r, size := utf8.DecodeRune(lx.data)
	if r == utf8.RuneError && size <= 1 {
		lx.report(diag.CodeLexError, lx.makeSpan(1), "invalid UTF-8 byte")
		return lx.recoverAtNewline()
	}
	span := lx.makeSpan(size)
	tok := token.Token{Type: token.Punct, Span: span, Text: string(lx.data[:size])}
	lx.advance(size)
	lx.setLineStart(false)
	return tok
}

// recoverAtNewline skips to (but not past) the next newline and returns a
// Whitespace token covering the skipped bytes, per the LexError recovery
// rule: resume at the next newline so downstream passes still make progress.
func (lx *Lexer) recoverAtNewline() token.Token {
	n := strings.IndexByte(string(lx.data), '\n')
	if n < 0 {
		n = len(lx.data)
	}
	if n == 0 {
		n = 1
	}
	span := lx.makeSpan(n)
	tok := token.Token{Type: token.Whitespace, Span: span, Text: string(lx.data[:n])}
	lx.advance(n)
	return tok
}

// All lazily yields every token up to and including EOF.
func (lx *Lexer) All() func(yield func(token.Token) bool) {
	return func(yield func(token.Token) bool) {
		for {
			tok := lx.Next()
			if !yield(tok) {
				return
			}
			if tok.Type == token.EOF {
				return
			}
		}
	}
}
