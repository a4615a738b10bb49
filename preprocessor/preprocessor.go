package preprocessor

import (
	"fmt"

	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/lexer"
	"github.com/overturf/cfgc/macro"
	"github.com/overturf/cfgc/source"
	"github.com/overturf/cfgc/token"
)

// PathResolver turns an #include operand into a path the FileLoader can
// read, given the file doing the including. Implementations encode the
// project's search-path policy (e.g. relative-to-current-file for quoted
// includes, a configured root list for angled ones); see cfgc's
// filesystem-backed default.
type PathResolver interface {
	Resolve(currentFile string, requested string, mode IncludeMode) (resolved string, ok bool)
}

// FileLoader reads the bytes of a resolved path. Split from PathResolver so
// tests can resolve in-memory without touching a real filesystem.
type FileLoader interface {
	Load(path string) ([]byte, error)
}

// Preprocessor holds the state shared across an entire translation unit,
// including everything #include pulls in: the macro table, the __COUNTER__
// value, and the include stack used for cycle detection. Definitions leak
// across #include boundaries in both directions (there is no include-scope
// boundary), which is why the table is a single shared instance rather than
// one per file.
type Preprocessor struct {
	reg          source.Registry
	resolver     PathResolver
	loader       FileLoader
	sink         diag.Sink
	table        *macro.Table
	counter      int
	includeStack []string
}

// Preprocess runs the full pipeline over rootPath and everything it
// (transitively) #includes, returning the single concatenated, fully
// macro-expanded token stream the config parser consumes.
func Preprocess(rootPath string, resolver PathResolver, loader FileLoader, reg source.Registry, initialDefs []*macro.Definition, sink diag.Sink) []token.Token {
	pp := &Preprocessor{
		reg:      reg,
		resolver: resolver,
		loader:   loader,
		sink:     sink,
		table:    macro.NewTable(initialDefs...),
	}
	return pp.processFile(rootPath, source.Span{})
}

func (pp *Preprocessor) processFile(path string, includeSite source.Span) []token.Token {
	for _, p := range pp.includeStack {
		if p == path {
			pp.sink.Report(diag.New(diag.CodeIncludeCycle, includeSite, "include cycle: %s already on the include stack", path))
			return nil
		}
	}
	data, err := pp.loader.Load(path)
	if err != nil {
		pp.sink.Report(diag.New(diag.CodeIncludeNotFound, includeSite, "%s: %v", path, err))
		return nil
	}

	pp.includeStack = append(pp.includeStack, path)
	defer func() { pp.includeStack = pp.includeStack[:len(pp.includeStack)-1] }()

	h, ok := pp.reg.Lookup(path)
	if !ok {
		h = pp.reg.Register(path, data)
	}
	lx := lexer.New(h, pp.reg.Bytes(h), pp.sink)
	ex := NewExpander(pp.table, pp.sink, &pp.counter, path)
	return pp.processTokens(lx, ex, path)
}

// processTokens drives one file's lexer: it buffers non-directive content
// between directive lines, macro-expands each buffered run as a unit (so a
// function-like invocation's arguments, which may span many tokens, are
// never split), and dispatches directive lines to the conditional-stack
// and macro-table mutations they request.
func (pp *Preprocessor) processTokens(lx *lexer.Lexer, ex *Expander, currentFile string) []token.Token {
	stack := newCondStack()
	var out []token.Token
	var content []token.Token

	flush := func() {
		if len(content) == 0 {
			return
		}
		if stack.Active() {
			out = append(out, ex.Expand(content)...)
		}
		content = nil
	}

	for {
		tok := lx.Next()
		if tok.Type == token.EOF {
			break
		}
		if tok.Type == token.DirectiveIntroducer {
			flush()
			name, rest, span := readDirectiveLine(lx, tok)
			pp.dispatch(name, rest, span, stack, ex, currentFile, &out)
			continue
		}
		if stack.Active() {
			content = append(content, tok)
		}
	}
	flush()
	if !stack.Empty() {
		pp.sink.Report(diag.New(diag.CodeUnterminatedCond, source.Span{}, "unterminated #if at end of %s", currentFile))
	}
	return out
}

// readDirectiveLine consumes the remainder of a directive's logical line
// (the directive name and everything after it up to, and including, the
// terminating newline or EOF), returning the name and the trailing tokens.
func readDirectiveLine(lx *lexer.Lexer, introducer token.Token) (name string, rest []token.Token, span source.Span) {
	span = introducer.Span
	var nameTok token.Token
	for {
		tok := lx.Next()
		if tok.IsTrivia() {
			span = span.Join(tok.Span)
			continue
		}
		nameTok = tok
		break
	}
	span = span.Join(nameTok.Span)
	if nameTok.Type == token.Identifier {
		name = nameTok.Text
	}
	if nameTok.Type == token.Newline || nameTok.Type == token.EOF {
		return name, rest, span
	}
	for {
		tok := lx.Next()
		if tok.Type == token.Newline || tok.Type == token.EOF {
			span = span.Join(tok.Span)
			break
		}
		rest = append(rest, tok)
		span = span.Join(tok.Span)
	}
	return name, rest, span
}

func (pp *Preprocessor) dispatch(name string, rest []token.Token, span source.Span, stack *condStack, ex *Expander, currentFile string, out *[]token.Token) {
	switch name {
	case "define":
		if !stack.Active() {
			return
		}
		def, err := parseDefine(rest, span)
		if err != nil {
			pp.sink.Report(diag.New(diag.CodeUnknownDirective, span, "#define: %v", err))
			return
		}
		if changed := pp.table.Define(def); changed {
			pp.sink.Report(diag.Diagnostic{Severity: diag.Warning, Code: diag.CodeMacroArity, Primary: span, Message: fmt.Sprintf("redefinition of %s changes arity", def.Name)})
		}
	case "undef":
		if !stack.Active() {
			return
		}
		n, err := parseUndefName(rest)
		if err != nil {
			pp.sink.Report(diag.New(diag.CodeUnknownDirective, span, "#undef: %v", err))
			return
		}
		pp.table.Undef(n)
	case "include":
		if !stack.Active() {
			return
		}
		path, mode, err := parseInclude(rest)
		if err != nil {
			pp.sink.Report(diag.New(diag.CodeUnknownDirective, span, "#include: %v", err))
			return
		}
		resolved, ok := pp.resolver.Resolve(currentFile, path, mode)
		if !ok {
			pp.sink.Report(diag.New(diag.CodeIncludeNotFound, span, "cannot resolve include %q", path))
			return
		}
		*out = append(*out, pp.processFile(resolved, span)...)
	case "if":
		cond := false
		if stack.Active() {
			cond = evalCondition(ex, pp.table, rest, pp.sink, span)
		}
		stack.PushIf(cond)
	case "ifdef":
		n, err := parseUndefName(rest)
		if err != nil {
			pp.sink.Report(diag.New(diag.CodeUnknownDirective, span, "#ifdef: %v", err))
			stack.PushIf(false)
			return
		}
		stack.PushIf(pp.table.Defined(n))
	case "ifndef":
		n, err := parseUndefName(rest)
		if err != nil {
			pp.sink.Report(diag.New(diag.CodeUnknownDirective, span, "#ifndef: %v", err))
			stack.PushIf(false)
			return
		}
		stack.PushIf(!pp.table.Defined(n))
	case "elif":
		cond := false
		if stack.NeedsElifEval() {
			cond = evalCondition(ex, pp.table, rest, pp.sink, span)
		}
		if err := stack.Elif(cond); err != nil {
			pp.sink.Report(diag.New(diag.CodeUnterminatedCond, span, "%v", err))
		}
	case "else":
		if err := stack.Else(); err != nil {
			pp.sink.Report(diag.New(diag.CodeUnterminatedCond, span, "%v", err))
		}
	case "endif":
		if err := stack.Endif(); err != nil {
			pp.sink.Report(diag.New(diag.CodeUnterminatedCond, span, "%v", err))
		}
	default:
		if stack.Active() {
			pp.sink.Report(diag.New(diag.CodeUnknownDirective, span, "unknown directive #%s", name))
		}
	}
}
