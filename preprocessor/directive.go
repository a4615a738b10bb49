package preprocessor

import (
	"fmt"

	"github.com/overturf/cfgc/macro"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

// IncludeMode distinguishes the two #include spellings so a PathResolver
// can apply a distinct search-path-vs-quoted-relative policy (e.g. one
// honoring HEMTT-style project roots); cfgc's FSResolver tries the
// including file's directory first for quoted includes only.
type IncludeMode int

const (
	IncludeQuoted IncludeMode = iota
	IncludeAngled
)

// parseDefine reads the token stream following the "define" keyword (already
// consumed by the caller) and builds a macro.Definition. toks must not
// include the terminating newline.
func parseDefine(toks []token.Token, defSpan source.Span) (*macro.Definition, error) {
	toks = trimLeadingTrivia(toks)
	if len(toks) == 0 || toks[0].Type != token.Identifier {
		return nil, fmt.Errorf("#define requires a macro name")
	}
	name := toks[0].Text
	rest := toks[1:]

	functionLike := len(rest) > 0 && rest[0].Is(token.Punct, "(")
	var params []string
	if functionLike {
		i := 1
		for i < len(rest) && !rest[i].Is(token.Punct, ")") {
			t := rest[i]
			switch {
			case t.IsTrivia():
			case t.Is(token.Punct, ","):
			case t.Type == token.Identifier:
				params = append(params, t.Text)
			default:
				return nil, fmt.Errorf("unexpected token %q in macro parameter list", t.Text)
			}
			i++
		}
		if i >= len(rest) {
			return nil, fmt.Errorf("unterminated macro parameter list")
		}
		rest = rest[i+1:]
	}

	body, err := buildBody(trimLeadingTrivia(rest), params)
	if err != nil {
		return nil, err
	}
	return &macro.Definition{
		Name:         name,
		FunctionLike: functionLike,
		Params:       params,
		Body:         body,
		DefSpan:      defSpan,
	}, nil
}

func trimLeadingTrivia(toks []token.Token) []token.Token {
	i := 0
	for i < len(toks) && toks[i].IsTrivia() {
		i++
	}
	return toks[i:]
}

// buildBody parses a macro replacement list into Items, recognizing the #
// (stringify) and ## (paste) operators. Whitespace and comments are dropped
// entirely: the corpus's macro bodies are never sensitive to their own
// internal spacing (the config grammar the expanded output feeds consumes
// whitespace silently, and round-trip formatting is out of scope), so
// keeping them would only complicate paste-adjacency detection for no
// observable benefit.
func buildBody(toks []token.Token, params []string) ([]macro.Item, error) {
	var significant []token.Token
	for _, t := range toks {
		if t.IsTrivia() || t.Type == token.Newline {
			continue
		}
		significant = append(significant, t)
	}

	paramIndex := func(name string) int {
		for i, p := range params {
			if p == name {
				return i
			}
		}
		return -1
	}

	var items []macro.Item
	i := 0
	for i < len(significant) {
		t := significant[i]
		switch {
		case t.Is(token.Punct, "#"):
			if i+1 >= len(significant) || significant[i+1].Type != token.Identifier {
				return nil, fmt.Errorf("# must be followed by a parameter name")
			}
			pname := significant[i+1].Text
			idx := paramIndex(pname)
			if idx < 0 {
				return nil, fmt.Errorf("# operand %q is not a parameter", pname)
			}
			items = append(items, macro.Item{Kind: macro.ItemStringify, ParamIndex: idx})
			i += 2
		case t.Is(token.Punct, "##"):
			if i+1 >= len(significant) {
				return nil, fmt.Errorf("## must be followed by a token")
			}
			if len(items) == 0 {
				return nil, fmt.Errorf("## cannot begin a macro body")
			}
			nt := significant[i+1]
			if nt.Type == token.Identifier {
				if idx := paramIndex(nt.Text); idx >= 0 {
					items = append(items, macro.Item{Kind: macro.ItemParam, ParamIndex: idx, PasteBefore: true})
					i += 2
					continue
				}
			}
			items = append(items, macro.Item{Kind: macro.ItemLiteral, Tok: nt, PasteBefore: true})
			i += 2
		case t.Type == token.Identifier && paramIndex(t.Text) >= 0:
			items = append(items, macro.Item{Kind: macro.ItemParam, ParamIndex: paramIndex(t.Text)})
			i++
		default:
			items = append(items, macro.Item{Kind: macro.ItemLiteral, Tok: t})
			i++
		}
	}
	return items, nil
}

// parseUndefName extracts the macro name from the token stream following
// "undef".
func parseUndefName(toks []token.Token) (string, error) {
	toks = trimLeadingTrivia(toks)
	if len(toks) == 0 || toks[0].Type != token.Identifier {
		return "", fmt.Errorf("#undef requires a macro name")
	}
	return toks[0].Text, nil
}

// parseInclude extracts the requested path and its quoting mode from the
// token stream following "include": either a quoted string ("x\y.hpp") or
// an angle-bracketed bareword (<x/y.hpp>, tokenized here as '<'
// IDENT/PUNCT... '>' and rejoined). A '\' inside the angled form is not
// tokenized: the lexer reports it as a LexError and skips the rest of the
// line, so such an include fails as an unterminated <...> path.
func parseInclude(toks []token.Token) (path string, mode IncludeMode, err error) {
	toks = trimLeadingTrivia(toks)
	if len(toks) == 0 {
		return "", 0, fmt.Errorf("#include requires a path")
	}
	if toks[0].Type == token.String {
		return toks[0].StringValue, IncludeQuoted, nil
	}
	if toks[0].Is(token.Punct, "<") {
		var sb []byte
		i := 1
		for i < len(toks) && !toks[i].Is(token.Punct, ">") {
			sb = append(sb, toks[i].Text...)
			i++
		}
		if i >= len(toks) {
			return "", 0, fmt.Errorf("unterminated <...> include path")
		}
		return string(sb), IncludeAngled, nil
	}
	return "", 0, fmt.Errorf("malformed #include argument")
}
