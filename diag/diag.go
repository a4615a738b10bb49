// Package diag defines the diagnostic record shape every later layer
// (lexer, preprocessor, parser, analyzer) reports through, and a
// ready-to-use Sink implementation (CollectingSink). The core never writes to os.Stdout or
// os.Stderr directly; it only ever appends to a Sink.
package diag

import (
	"fmt"

	"github.com/overturf/cfgc/source"
)

// Severity classifies how serious a Diagnostic is. Severity is configurable
// per Code by the driver; the values here are only the defaults a bare Sink
// consumer would expect.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Code is one of the distinct error kinds named by the error-handling design:
// every diagnostic the core emits carries exactly one Code.
type Code string

const (
	CodeLexError          Code = "LexError"
	CodeUnknownDirective   Code = "UnknownDirective"
	CodeMacroArity         Code = "MacroArity"
	CodePasteError         Code = "PasteError"
	CodeCondExprError      Code = "CondExprError"
	CodeIncludeCycle       Code = "IncludeCycle"
	CodeIncludeNotFound    Code = "IncludeNotFound"
	CodeUnterminatedCond   Code = "UnterminatedCond"
	CodeParseError         Code = "ParseError"
	CodeUnexpectedToken    Code = "UnexpectedToken"
	CodeDuplicateProperty  Code = "DuplicateProperty"
	CodeMissingClass       Code = "MissingClass"
	CodeNonPublicScope     Code = "NonPublicScope"
	CodeInheritanceCycle   Code = "InheritanceCycle"
	CodeUndeclaredParent   Code = "UndeclaredParent"
	CodeArrayAppendNoBase  Code = "ArrayAppendWithoutBase"
	CodeRequiredVersion    Code = "RequiredVersionFormat"
	CodeIntegerOverflow    Code = "IntegerOverflow"
)

// defaultSeverity is consulted by New when the caller does not override it.
var defaultSeverity = map[Code]Severity{
	CodeLexError:         Error,
	CodeUnknownDirective: Error,
	CodeMacroArity:       Error,
	CodePasteError:       Error,
	CodeCondExprError:    Error,
	CodeIncludeCycle:     Error,
	CodeIncludeNotFound:  Error,
	CodeUnterminatedCond: Error,
	CodeParseError:       Error,
	CodeUnexpectedToken:  Error,
	CodeDuplicateProperty: Warning,
	CodeMissingClass:      Warning,
	CodeNonPublicScope:    Warning,
	CodeInheritanceCycle:  Warning,
	CodeUndeclaredParent:  Warning,
	CodeArrayAppendNoBase: Warning,
	CodeRequiredVersion:   Warning,
	CodeIntegerOverflow:   Warning,
}

// DefaultSeverity returns the out-of-the-box severity for a Code. Drivers
// that want different behavior build their own Severity map and pass it to
// a Sink wrapper; the core itself never consults anything but this default.
func DefaultSeverity(c Code) Severity {
	if s, ok := defaultSeverity[c]; ok {
		return s
	}
	return Error
}

// Diagnostic is one reported record: a severity, a code, a primary span,
// zero or more secondary spans giving extra context, and a message.
type Diagnostic struct {
	Severity  Severity
	Code      Code
	Primary   source.Span
	Secondary []source.Span
	Message   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s (%s)", d.Severity, d.Code, d.Message, d.Primary)
}

// New builds a Diagnostic with the default severity for code.
func New(code Code, primary source.Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: DefaultSeverity(code),
		Code:     code,
		Primary:  primary,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Sink receives diagnostics as they're produced. Implementations must be
// safe for concurrent use if the driver runs translation units in parallel.
type Sink interface {
	Report(Diagnostic)
}

// CollectingSink is a Sink that simply appends everything it receives, in
// report order. It is not safe for concurrent use from multiple goroutines
// without external synchronization around a translation unit boundary;
// drivers fanning out across files should give each goroutine its own
// CollectingSink and merge results after the WaitGroup completes (see
// cfgc.AnalyzeFiles).
type CollectingSink struct {
	Diagnostics []Diagnostic
}

func NewCollectingSink() *CollectingSink { return &CollectingSink{} }

func (s *CollectingSink) Report(d Diagnostic) {
	s.Diagnostics = append(s.Diagnostics, d)
}

// HasErrors reports whether any collected diagnostic is of Error severity.
func (s *CollectingSink) HasErrors() bool {
	for _, d := range s.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
