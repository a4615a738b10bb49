package config

import (
	"fmt"

	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

// tokenReader is a one-token-lookahead cursor over a pre-expanded token
// slice, grounded on the teacher's parser/token_reader.go (next/peek/
// consume/mustConsume), generalized to read from a plain slice (the
// preprocessor's output) instead of a fresh per-file scanner, and to skip
// trivia transparently since the config grammar never looks at it.
type tokenReader struct {
	toks []token.Token
	pos  int
}

func newTokenReader(toks []token.Token) *tokenReader {
	r := &tokenReader{toks: toks}
	r.skipTrivia()
	return r
}

func (r *tokenReader) skipTrivia() {
	for r.pos < len(r.toks) {
		t := r.toks[r.pos]
		if t.IsTrivia() || t.Type == token.Newline {
			r.pos++
			continue
		}
		break
	}
}

func (r *tokenReader) peek() token.Token {
	if r.pos >= len(r.toks) {
		return token.Token{Type: token.EOF}
	}
	return r.toks[r.pos]
}

func (r *tokenReader) next() token.Token {
	t := r.peek()
	if r.pos < len(r.toks) {
		r.pos++
	}
	r.skipTrivia()
	return t
}

func (r *tokenReader) atEOF() bool { return r.peek().Type == token.EOF }

// consume advances past tok if it matches (typ, text); it reports whether it
// did.
func (r *tokenReader) consume(typ token.Type, text string) bool {
	if r.peek().Is(typ, text) {
		r.next()
		return true
	}
	return false
}

// Parser builds a config.File from a fully preprocessed token stream.
type Parser struct {
	r    *tokenReader
	sink diag.Sink
}

func NewParser(toks []token.Token, sink diag.Sink) *Parser {
	return &Parser{r: newTokenReader(toks), sink: sink}
}

// Parse runs the grammar in §4.3 over the whole stream, producing the
// anonymous root class. Recoverable errors (UnexpectedToken, missing ';')
// are reported to the sink and parsing resumes at the next statement
// boundary; Parse itself always returns a File, never a fatal error, since
// nothing in this grammar is unrecoverable at the top level.
func Parse(toks []token.Token, sink diag.Sink) *File {
	p := NewParser(toks, sink)
	root := &Class{Forward: false}
	root.Body = p.parseItems(root, false)
	return &File{Root: root}
}

// parseItems parses item* until EOF or, when nested is true, until the
// matching '}' (which it consumes).
func (p *Parser) parseItems(enclosing *Class, nested bool) []Node {
	var items []Node
	for {
		if p.r.atEOF() {
			return items
		}
		if nested && p.r.peek().Is(token.Punct, "}") {
			p.r.next()
			return items
		}
		item := p.parseItem(enclosing)
		if item == nil {
			continue
		}
		if cls, ok := item.(*Class); ok {
			items = mergeOrAppendClass(items, cls)
			continue
		}
		items = append(items, item)
	}
}

// mergeOrAppendClass implements the forward/definition merge invariant (a
// class declared both as forward -- `class X;` -- and defined -- `class X
// { ... }` -- in the same body collapses into one node, the defined form
// winning). items is the body accumulated so far at the same nesting level
// as cls; cls is the node parseItem just produced.
//
// enclosing.Body is not populated until parseItems returns, so this has to
// check the in-progress items slice rather than enclosing.Body.
func mergeOrAppendClass(items []Node, cls *Class) []Node {
	for i, n := range items {
		existing, ok := n.(*Class)
		if !ok || existing.Name != cls.Name {
			continue
		}
		switch {
		case existing.Forward && !cls.Forward:
			// the definition supersedes the earlier forward declaration,
			// replacing it in place rather than appending a duplicate
			cls.Span = existing.Span.Join(cls.Span)
			items[i] = cls
			return items
		case !existing.Forward && cls.Forward:
			// a later bare forward reference to an already-defined class
			// names nothing new; the existing definition stands
			return items
		}
	}
	return append(items, cls)
}

func (p *Parser) parseItem(enclosing *Class) Node {
	tok := p.r.peek()
	if tok.Type == token.Identifier && tok.Text == "class" {
		return p.parseClass(enclosing)
	}
	if tok.Type == token.Identifier {
		return p.parseProperty()
	}
	p.report(diag.CodeUnexpectedToken, tok.Span, "unexpected token %q at statement position", describeTok(tok))
	p.recoverToStatementBoundary()
	return nil
}

func (p *Parser) parseClass(enclosing *Class) Node {
	classKw := p.r.next() // 'class'
	nameTok := p.r.peek()
	if nameTok.Type != token.Identifier {
		p.report(diag.CodeUnexpectedToken, nameTok.Span, "expected class name, got %q", describeTok(nameTok))
		p.recoverToStatementBoundary()
		return nil
	}
	p.r.next()

	c := &Class{Name: nameTok.Text, NameSpan: nameTok.Span, Enclosing: enclosing, Span: classKw.Span}

	if p.r.consume(token.Punct, ":") {
		parentTok := p.r.peek()
		if parentTok.Type != token.Identifier {
			p.report(diag.CodeUnexpectedToken, parentTok.Span, "expected parent class name, got %q", describeTok(parentTok))
		} else {
			p.r.next()
			c.Parent = parentTok.Text
			c.HasParent = true
		}
	}

	switch {
	case p.r.consume(token.Punct, ";"):
		c.Forward = true
		c.Span = c.Span.Join(nameTok.Span)
	case p.r.consume(token.Punct, "{"):
		c.Body = p.parseItems(c, true)
		p.r.consume(token.Punct, ";")
	default:
		bad := p.r.peek()
		p.report(diag.CodeUnexpectedToken, bad.Span, "expected ';' or '{' after class %s, got %q", c.Name, describeTok(bad))
		p.recoverToStatementBoundary()
	}
	return c
}

func (p *Parser) parseProperty() Node {
	nameTok := p.r.next()
	prop := &Property{Name: nameTok.Text, NameSpan: nameTok.Span, Span: nameTok.Span}

	if p.r.consume(token.Punct, "[") {
		if !p.r.consume(token.Punct, "]") {
			bad := p.r.peek()
			p.report(diag.CodeUnexpectedToken, bad.Span, "expected ']' after '[' in %s[, got %q", prop.Name, describeTok(bad))
			p.recoverToStatementBoundary()
			return prop
		}
		prop.IsArray = true
	}

	switch {
	case p.r.consume(token.Punct, "+="):
		prop.Append = true
		if !prop.IsArray {
			p.report(diag.CodeParseError, prop.Span, "+= is only legal on an array-shaped left-hand side (%s[])", prop.Name)
		}
	case p.r.consume(token.Punct, "="):
	default:
		bad := p.r.peek()
		p.report(diag.CodeUnexpectedToken, bad.Span, "expected '=' or '+=' after %s, got %q", prop.Name, describeTok(bad))
		p.recoverToStatementBoundary()
		return nil
	}

	val, err := p.parseValue()
	if err != nil {
		p.report(diag.CodeParseError, prop.Span, "%v", err)
		p.recoverToStatementBoundary()
		return prop
	}
	prop.Value = val
	prop.Span = prop.Span.Join(val.Span)

	if !p.r.consume(token.Punct, ";") {
		p.report(diag.CodeParseError, prop.Span, "missing ';' after property %s", prop.Name)
		p.recoverToStatementBoundary()
		return prop
	}
	return prop
}

func (p *Parser) parseValue() (Value, error) {
	tok := p.r.peek()
	switch {
	case tok.Is(token.Punct, "{"):
		return p.parseArray()
	case tok.Type == token.String:
		p.r.next()
		return Value{Kind: ValueString, Str: tok.StringValue, Span: tok.Span}, nil
	case tok.Type == token.Integer:
		p.r.next()
		return Value{Kind: ValueInt, Int: tok.IntValue, Span: tok.Span}, nil
	case tok.Type == token.Float:
		p.r.next()
		if isOverflowedInteger(tok.Text) {
			p.report(diag.CodeIntegerOverflow, tok.Span, "integer literal %s overflows 64-bit signed, widened to float", tok.Text)
		}
		return Value{Kind: ValueFloat, Float: tok.FloatValue, Span: tok.Span}, nil
	case tok.Type == token.Identifier:
		p.r.next()
		return Value{Kind: ValueIdent, Ident: tok.Text, Span: tok.Span}, nil
	default:
		return Value{}, fmt.Errorf("expected a value, got %q", describeTok(tok))
	}
}

func (p *Parser) parseArray() (Value, error) {
	open := p.r.next() // '{'
	v := Value{Kind: ValueArray, Span: open.Span}
	if p.r.consume(token.Punct, "}") {
		v.Span = v.Span.Join(p.lastSpan())
		return v, nil
	}
	for {
		el, err := p.parseValue()
		if err != nil {
			return v, err
		}
		v.Array = append(v.Array, el)
		if p.r.consume(token.Punct, ",") {
			if p.r.peek().Is(token.Punct, "}") {
				// trailing comma: tolerated, no phantom element
				break
			}
			continue
		}
		break
	}
	closeTok := p.r.peek()
	if !p.r.consume(token.Punct, "}") {
		return v, fmt.Errorf("expected '}' to close array, got %q", describeTok(closeTok))
	}
	v.Span = v.Span.Join(closeTok.Span)
	return v, nil
}

func (p *Parser) lastSpan() source.Span {
	if p.r.pos == 0 {
		return source.Span{}
	}
	return p.r.toks[p.r.pos-1].Span
}

// recoverToStatementBoundary discards tokens until the next top-level ';'
// or '}' (consuming it), or EOF.
func (p *Parser) recoverToStatementBoundary() {
	depth := 0
	for !p.r.atEOF() {
		tok := p.r.peek()
		switch {
		case tok.Is(token.Punct, "{"):
			depth++
			p.r.next()
		case tok.Is(token.Punct, "}"):
			if depth == 0 {
				return
			}
			depth--
			p.r.next()
		case tok.Is(token.Punct, ";") && depth == 0:
			p.r.next()
			return
		default:
			p.r.next()
		}
	}
}

func (p *Parser) report(code diag.Code, span source.Span, format string, args ...any) {
	if p.sink != nil {
		p.sink.Report(diag.New(code, span, format, args...))
	}
}

func describeTok(t token.Token) string {
	if t.Type == token.EOF {
		return "<eof>"
	}
	return t.Text
}

// isOverflowedInteger reports whether text is the lexeme of a decimal
// integer literal that the lexer widened to a Float token because it
// overflows int64 -- recognizable because, unlike a genuine float literal,
// it contains no '.', 'e', or 'E'.
func isOverflowedInteger(text string) bool {
	for _, r := range text {
		if r == '.' || r == 'e' || r == 'E' {
			return false
		}
	}
	return true
}
