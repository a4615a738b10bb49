package preprocessor

import (
	"fmt"
	"strconv"

	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/macro"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

// evalCondition resolves defined(...), macro-expands the remainder, parses
// the result as a constant expression, and evaluates it. Parse and
// evaluation failures are reported as CondExprError and the branch is
// treated as false, per the recovery table: a malformed #if must not abort
// the rest of the file.
func evalCondition(ex *Expander, table *macro.Table, raw []token.Token, sink diag.Sink, span source.Span) bool {
	resolved := resolveDefined(raw, table)
	expanded := ex.Expand(resolved)
	significant := stripTrivia(expanded)
	if len(significant) == 0 {
		sink.Report(diag.New(diag.CodeCondExprError, span, "empty conditional expression"))
		return false
	}
	p := &exprParser{toks: significant}
	expr, err := p.parseExpr(precLowest)
	if err == nil && p.pos != len(p.toks) {
		err = fmt.Errorf("unexpected trailing token %q", p.toks[p.pos].Text)
	}
	if err != nil {
		sink.Report(diag.New(diag.CodeCondExprError, span, "%v", err))
		return false
	}
	v, err := expr.Eval()
	if err != nil {
		sink.Report(diag.New(diag.CodeCondExprError, span, "%v", err))
		return false
	}
	return v != 0
}

func stripTrivia(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.IsTrivia() || t.Type == token.Newline {
			continue
		}
		out = append(out, t)
	}
	return out
}

// resolveDefined replaces every defined NAME / defined(NAME) subsequence
// with a literal 1 or 0 token, before macro expansion runs -- defined must
// see whether NAME has a definition right now, not after NAME itself is
// expanded away.
func resolveDefined(toks []token.Token, table *macro.Table) []token.Token {
	var out []token.Token
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Type == token.Identifier && t.Text == "defined" {
			j := i + 1
			for j < len(toks) && toks[j].IsTrivia() {
				j++
			}
			paren := false
			if j < len(toks) && toks[j].Is(token.Punct, "(") {
				paren = true
				j++
				for j < len(toks) && toks[j].IsTrivia() {
					j++
				}
			}
			if j < len(toks) && toks[j].Type == token.Identifier {
				name := toks[j].Text
				end := j + 1
				if paren {
					for end < len(toks) && toks[end].IsTrivia() {
						end++
					}
					if end < len(toks) && toks[end].Is(token.Punct, ")") {
						end++
					}
				}
				val := 0
				if table.Defined(name) {
					val = 1
				}
				out = append(out, token.Token{Type: token.Integer, Span: t.Span, Text: strconv.Itoa(val), IntValue: int64(val)})
				i = end
				continue
			}
		}
		out = append(out, t)
		i++
	}
	return out
}

// expr is a constant-expression AST node.
type expr interface {
	Eval() (int64, error)
}

type constInt int64

func (c constInt) Eval() (int64, error) { return int64(c), nil }

// ident is a bare identifier surviving to the constant-expression grammar;
// since macro expansion already ran, any such identifier was never a macro
// and evaluates to 0 (spec: "an undefined identifier evaluates to 0").
type ident string

func (ident) Eval() (int64, error) { return 0, nil }

type unary struct {
	op string
	x  expr
}

func (u unary) Eval() (int64, error) {
	v, err := u.x.Eval()
	if err != nil {
		return 0, err
	}
	switch u.op {
	case "!":
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case "-":
		return -v, nil
	case "+":
		return v, nil
	}
	return 0, fmt.Errorf("unknown unary operator %q", u.op)
}

type logical struct {
	op   string // "&&" or "||"
	l, r expr
}

func (b logical) Eval() (int64, error) {
	lv, err := b.l.Eval()
	if err != nil {
		return 0, err
	}
	if b.op == "&&" && lv == 0 {
		return 0, nil
	}
	if b.op == "||" && lv != 0 {
		return 1, nil
	}
	rv, err := b.r.Eval()
	if err != nil {
		return 0, err
	}
	if rv != 0 {
		return 1, nil
	}
	return 0, nil
}

type binary struct {
	op   string
	l, r expr
}

func (b binary) Eval() (int64, error) {
	lv, err := b.l.Eval()
	if err != nil {
		return 0, err
	}
	rv, err := b.r.Eval()
	if err != nil {
		return 0, err
	}
	switch b.op {
	case "==":
		return boolInt(lv == rv), nil
	case "!=":
		return boolInt(lv != rv), nil
	case "<":
		return boolInt(lv < rv), nil
	case "<=":
		return boolInt(lv <= rv), nil
	case ">":
		return boolInt(lv > rv), nil
	case ">=":
		return boolInt(lv >= rv), nil
	case "+":
		return lv + rv, nil
	case "-":
		return lv - rv, nil
	case "*":
		return lv * rv, nil
	case "/":
		if rv == 0 {
			return 0, fmt.Errorf("division by zero in conditional expression")
		}
		return lv / rv, nil
	}
	return 0, fmt.Errorf("unknown binary operator %q", b.op)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// precedence climbing, grounded on the teacher's Pratt-parser dispatch
// style (parser/expr.go's parseRule table) generalized from int-flag
// comparisons to a full arithmetic/logical grammar.
type precedence int

const (
	precLowest precedence = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
)

var binaryPrec = map[string]precedence{
	"||": precOr,
	"&&": precAnd,
	"==": precEquality, "!=": precEquality,
	"<": precRelational, "<=": precRelational, ">": precRelational, ">=": precRelational,
	"+": precAdditive, "-": precAdditive,
	"*": precMultiplicative, "/": precMultiplicative,
}

type exprParser struct {
	toks []token.Token
	pos  int
}

func (p *exprParser) peek() (token.Token, bool) {
	if p.pos >= len(p.toks) {
		return token.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) parseExpr(minPrec precedence) (expr, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.Type != token.Punct {
			break
		}
		prec, known := binaryPrec[tok.Text]
		if !known || prec < minPrec {
			break
		}
		p.pos++
		// +1: every operator here is left-associative, so the right operand
		// must not itself swallow another operator of the same precedence.
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		if tok.Text == "&&" || tok.Text == "||" {
			left = logical{op: tok.Text, l: left, r: right}
		} else {
			left = binary{op: tok.Text, l: left, r: right}
		}
	}
	return left, nil
}

func (p *exprParser) parsePrefix() (expr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of conditional expression")
	}
	switch {
	case tok.Type == token.Integer:
		p.pos++
		return constInt(tok.IntValue), nil
	case tok.Type == token.Float:
		p.pos++
		return constInt(int64(tok.FloatValue)), nil
	case tok.Type == token.Identifier:
		p.pos++
		return ident(tok.Text), nil
	case tok.Is(token.Punct, "("):
		p.pos++
		inner, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		close, ok := p.peek()
		if !ok || !close.Is(token.Punct, ")") {
			return nil, fmt.Errorf("missing closing ')' in conditional expression")
		}
		p.pos++
		return inner, nil
	case tok.Is(token.Punct, "!") || tok.Is(token.Punct, "-") || tok.Is(token.Punct, "+"):
		p.pos++
		x, err := p.parseExpr(precUnary)
		if err != nil {
			return nil, err
		}
		return unary{op: tok.Text, x: x}, nil
	default:
		return nil, fmt.Errorf("unexpected token %q in conditional expression", tok.Text)
	}
}
