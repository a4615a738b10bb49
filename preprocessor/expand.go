// Package preprocessor implements macro expansion, conditional compilation,
// and #include resolution over a lexer.Lexer's token stream.
//
// The expansion engine is grounded on the teacher's Pratt-parser dispatch
// style (parser/parser.go's parseRule table) applied to a different grammar,
// and implemented as an explicit work-list over a token buffer (design note
// 9: "implement the expander as a push-back token buffer plus an explicit
// work list, not via native recursion") rather than one recursive function
// per token, so a long run of rescanned tokens never grows the Go call
// stack. Argument pre-expansion still recurses, but that recursion is
// bounded by macro nesting depth, not token count.
package preprocessor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/lexer"
	"github.com/overturf/cfgc/macro"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

// pending is a token paired with the hide set it currently carries.
type pending struct {
	Tok token.Token
	HS  HideSet
}

func wrap(toks []token.Token, hs HideSet) []pending {
	out := make([]pending, len(toks))
	for i, t := range toks {
		out[i] = pending{Tok: t, HS: hs}
	}
	return out
}

func unwrap(ps []pending) []token.Token {
	out := make([]token.Token, len(ps))
	for i, p := range ps {
		out[i] = p.Tok
	}
	return out
}

// Expander runs the macro-expansion algorithm (spec'd identification,
// function-like invocation, argument pre-expansion, substitution, hide-set
// discipline, rescan) over a token slice, and resolves the three special
// identifiers __COUNTER__/__FILE__/__LINE__.
type Expander struct {
	table   *macro.Table
	sink    diag.Sink
	counter *int
	file    string
}

// NewExpander builds an Expander. counter is shared (by pointer) across
// every Expander in one translation unit, including across #include
// boundaries, so __COUNTER__ never repeats or resets mid-file; it must not
// be shared across translation units (spec 5: per-TU counter).
func NewExpander(table *macro.Table, sink diag.Sink, counter *int, file string) *Expander {
	return &Expander{table: table, sink: sink, counter: counter, file: file}
}

func (ex *Expander) SetFile(file string) { ex.file = file }

// Expand fully macro-expands toks and returns the resulting token slice.
func (ex *Expander) Expand(toks []token.Token) []token.Token {
	return unwrap(ex.expandQueue(wrap(toks, nil)))
}

func (ex *Expander) expandQueue(queue []pending) []pending {
	var out []pending
	for len(queue) > 0 {
		t := queue[0]
		rest := queue[1:]

		if t.Tok.Type != token.Identifier {
			out = append(out, t)
			queue = rest
			continue
		}
		name := t.Tok.Text
		if t.HS.Contains(name) {
			out = append(out, t)
			queue = rest
			continue
		}
		if lit, ok := ex.builtinLiteral(name, t.Tok); ok {
			queue = append([]pending{{Tok: lit, HS: t.HS}}, rest...)
			continue
		}
		def, ok := ex.table.Lookup(name)
		if !ok {
			out = append(out, t)
			queue = rest
			continue
		}
		if !def.FunctionLike {
			hs2 := t.HS.Add(name)
			substituted := ex.subst(def, nil, hs2, t.Tok.Span)
			queue = append(substituted, rest...)
			continue
		}

		openIdx, hasOpen := peekOpenParen(rest)
		if !hasOpen {
			out = append(out, t)
			queue = rest
			continue
		}
		args, consumed, closeHS, err := readArgs(rest, openIdx)
		if err != nil {
			ex.sink.Report(diag.New(diag.CodeMacroArity, t.Tok.Span, "%v", err))
		}
		args = adjustArity(args, len(def.Params), name, t.Tok.Span, ex.sink)
		hs2 := t.HS.Intersect(closeHS).Add(name)
		substituted := ex.subst(def, args, hs2, t.Tok.Span)
		queue = append(substituted, rest[consumed:]...)
	}
	return out
}

// peekOpenParen scans past whitespace/comment/newline trivia looking for the
// '(' that must follow a function-like macro's name for it to be recognized
// as an invocation; the lookahead may cross logical lines (a macro call's
// '(' can be on a later line than its name).
func peekOpenParen(rest []pending) (int, bool) {
	for i, p := range rest {
		if p.Tok.IsTrivia() || p.Tok.Type == token.Newline {
			continue
		}
		if p.Tok.Type == token.Punct && p.Tok.Text == "(" {
			return i, true
		}
		return -1, false
	}
	return -1, false
}

// readArgs splits the balanced token run starting right after rest[openIdx]
// ('(') into comma-separated arguments at the top nesting level, honoring
// ()/[]/{} nesting (commas or close-delimiters inside any of these do not
// split or end the argument list). It returns the arguments, the number of
// elements of rest consumed (including the closing ')'), and the hide set of
// the closing ')' token (used for the intersection step when computing the
// macro's expansion hide set).
func readArgs(rest []pending, openIdx int) (args [][]pending, consumed int, closeHS HideSet, err error) {
	depth := 0
	var current []pending
	i := openIdx + 1
	for i < len(rest) {
		p := rest[i]
		switch {
		case p.Tok.Type == token.Punct && (p.Tok.Text == "(" || p.Tok.Text == "[" || p.Tok.Text == "{"):
			depth++
			current = append(current, p)
		case p.Tok.Type == token.Punct && p.Tok.Text == ")" && depth == 0:
			args = append(args, current)
			return args, i + 1, p.HS, nil
		case p.Tok.Type == token.Punct && (p.Tok.Text == ")" || p.Tok.Text == "]" || p.Tok.Text == "}"):
			depth--
			current = append(current, p)
		case p.Tok.Type == token.Punct && p.Tok.Text == "," && depth == 0:
			args = append(args, current)
			current = nil
		default:
			current = append(current, p)
		}
		i++
	}
	args = append(args, current)
	return args, i, nil, fmt.Errorf("missing closing ')' in macro invocation")
}

// adjustArity pads missing trailing arguments with empty token runs and
// reports (but does not fail on) an excess of arguments, truncating them.
func adjustArity(args [][]pending, nparams int, name string, span source.Span, sink diag.Sink) [][]pending {
	if nparams == 0 {
		if len(args) == 1 && len(args[0]) == 0 {
			return nil
		}
	}
	if len(args) > nparams {
		if sink != nil {
			sink.Report(diag.New(diag.CodeMacroArity, span, "macro %s expects %d argument(s), got %d", name, nparams, len(args)))
		}
		return args[:nparams]
	}
	for len(args) < nparams {
		args = append(args, nil)
	}
	return args
}

// subst walks def's replacement list, substituting parameters with their
// fully pre-expanded actual arguments (including when the parameter is a
// stringify or paste operand -- this is a deliberate, corpus-grounded
// deviation from the strict C convention of using the raw argument there;
// see DESIGN.md), applies ## pastes between adjacent items, and finally
// unions hs into every produced token's hide set and appends an expansion
// frame (def.Name, callSite) to every produced token's span -- literal
// body tokens, substituted arguments, and the results of stringify/paste
// alike -- so a diagnostic raised against an expanded token can still be
// traced back through the macro call that produced it.
func (ex *Expander) subst(def *macro.Definition, args [][]pending, hs HideSet, callSite source.Span) []pending {
	expandedArgs := make([][]pending, len(args))
	for i, a := range args {
		expandedArgs[i] = ex.expandQueue(a)
	}

	var result []pending
	items := def.Body
	for i, item := range items {
		var chunk []pending
		switch item.Kind {
		case macro.ItemLiteral:
			chunk = []pending{{Tok: item.Tok}}
		case macro.ItemStringify:
			arg := argOrNil(expandedArgs, item.ParamIndex)
			chunk = []pending{{Tok: ex.stringify(arg, callSite)}}
		case macro.ItemParam:
			chunk = argOrNil(expandedArgs, item.ParamIndex)
		}

		if item.PasteBefore && len(result) > 0 && len(chunk) > 0 {
			left := result[len(result)-1]
			right := chunk[0]
			pasted, perr := ex.paste(left.Tok, right.Tok)
			if perr != nil {
				ex.sink.Report(diag.New(diag.CodePasteError, callSite, "%v", perr))
			}
			result = result[:len(result)-1]
			result = append(result, pending{Tok: pasted, HS: left.HS.Intersect(right.HS)})
			result = append(result, chunk[1:]...)
		} else {
			result = append(result, chunk...)
		}
		_ = i
	}

	out := make([]pending, len(result))
	for i, p := range result {
		tok := p.Tok
		tok.Span = tok.Span.WithFrame(def.Name, callSite)
		out[i] = pending{Tok: tok, HS: p.HS.Union(hs)}
	}
	return out
}

func argOrNil(args [][]pending, idx int) []pending {
	if idx < 0 || idx >= len(args) {
		return nil
	}
	return args[idx]
}

// stringify builds the string token produced by the # operator: the
// argument's text with leading/trailing whitespace trimmed and interior
// whitespace runs collapsed to a single space, quoted using this language's
// doubled-quote escape convention (see lexer string literals) rather than
// C's backslash convention -- the text that would actually round-trip
// through this lexer.
func (ex *Expander) stringify(arg []pending, span source.Span) token.Token {
	var sb strings.Builder
	lastWasSpace := true
	for _, p := range arg {
		t := p.Tok
		if t.IsTrivia() || t.Type == token.Newline {
			if !lastWasSpace {
				sb.WriteByte(' ')
				lastWasSpace = true
			}
			continue
		}
		sb.WriteString(t.Text)
		lastWasSpace = false
	}
	value := strings.TrimSpace(sb.String())
	raw := `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	return token.Token{Type: token.String, Span: span, Text: raw, StringRaw: raw, StringValue: value}
}

// paste concatenates the lexical text of left and right and re-lexes the
// result, which must form exactly one token.
func (ex *Expander) paste(left, right token.Token) (token.Token, error) {
	combined := left.Text + right.Text
	reg := source.NewRegistry()
	h := reg.Register("<paste>", []byte(combined))
	lx := lexer.New(h, reg.Bytes(h), nil)
	first := lx.Next()
	second := lx.Next()
	if first.Type == token.EOF || second.Type != token.EOF {
		return left, fmt.Errorf("pasting %q and %q does not yield a single token", left.Text, right.Text)
	}
	first.Span = left.Span.Join(right.Span)
	return first, nil
}

func (ex *Expander) builtinLiteral(name string, site token.Token) (token.Token, bool) {
	if ex.table.Defined(name) {
		return token.Token{}, false
	}
	switch name {
	case "__COUNTER__":
		v := *ex.counter
		*ex.counter++
		return token.Token{Type: token.Integer, Span: site.Span, Text: strconv.Itoa(v), IntValue: int64(v)}, true
	case "__FILE__":
		raw := `"` + strings.ReplaceAll(ex.file, `"`, `""`) + `"`
		return token.Token{Type: token.String, Span: site.Span, Text: raw, StringRaw: raw, StringValue: ex.file}, true
	case "__LINE__":
		line := site.Span.Start.Line
		return token.Token{Type: token.Integer, Span: site.Span, Text: strconv.Itoa(line), IntValue: int64(line)}, true
	default:
		return token.Token{}, false
	}
}
