package analyze

import (
	"github.com/overturf/cfgc/config"
	"github.com/overturf/cfgc/diag"
)

// Rule is a pure function over the parsed tree: given the root class, a
// Resolver for inheritance queries, and a sink, it reports whatever
// diagnostics it finds. Rules are independent of each other and of
// evaluation order (spec 4.4: "order among rules is not observable").
type Rule func(root *config.Class, r *Resolver, sink diag.Sink)

// DefaultRules is the built-in rule set: the representative CfgPatches
// scope rule plus the four added rules.
func DefaultRules() []Rule {
	return []Rule{
		RuleCfgPatchesScope,
		RuleDuplicateProperty,
		RuleUndeclaredParent,
		RuleArrayAppendWithoutBase,
		RuleRequiredVersionFormat,
	}
}

// Analyze walks f's tree once and runs each rule over it, reporting through
// sink. A fresh Resolver is created per call so memoized inheritance state
// never leaks across files; callers analyzing many files concurrently
// should call Analyze once per file/goroutine (see cfgc.AnalyzeFiles).
func Analyze(f *config.File, sink diag.Sink, rules ...Rule) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	r := NewResolver()

	// Seed inheritance-cycle diagnostics once regardless of which rules run,
	// since more than one rule's correctness depends on an acyclic chain and
	// a cycle should only ever be reported once per class.
	WalkClasses(f.Root, func(c *config.Class) {
		if !c.HasParent || c.Forward {
			return
		}
		if r.HasCycle(c) {
			reportCycle(sink, c)
		}
	})

	for _, rule := range rules {
		rule(f.Root, r, sink)
	}
}
