// Package analyze walks a config.File tree once and runs independent rule
// functions over it, each reporting through a diag.Sink. Inheritance
// resolution -- the one piece of shared state every rule may need -- is
// lazy and memoized here rather than built eagerly during parsing, because
// a class's declared parent may be a sibling that appears later in the same
// body (spec 4.4: "walking B backwards... then outward").
package analyze

import (
	"github.com/overturf/cfgc/config"
	"github.com/overturf/cfgc/diag"
)

// lookupResult memoizes one class's resolved parent (or its absence).
type lookupResult struct {
	parent *config.Class
	ok     bool
}

// Resolver memoizes parent lookups and chain walks for one analysis run. It
// is not safe for concurrent use; give each parallel translation unit its
// own Resolver (same rule as macro.Table).
type Resolver struct {
	memo map[*config.Class]lookupResult
}

func NewResolver() *Resolver {
	return &Resolver{memo: make(map[*config.Class]lookupResult)}
}

// Parent resolves c's declared parent, if any, per the locality rule: walk
// c's own enclosing body backwards from c's position for a sibling class
// named c.Parent; failing that, search that whole body (so a later sibling
// also matches), then each ancestor body in turn out to the root, each
// from its last item backwards. Other files are never consulted. The
// result is memoized per Class pointer.
func (r *Resolver) Parent(c *config.Class) (*config.Class, bool) {
	if cached, ok := r.memo[c]; ok {
		return cached.parent, cached.ok
	}

	if !c.HasParent {
		result := lookupResult{ok: false}
		r.memo[c] = result
		return nil, false
	}

	parent := lookupSibling(c, c.Parent)
	result := lookupResult{parent: parent, ok: parent != nil}
	r.memo[c] = result
	return result.parent, result.ok
}

// lookupSibling implements the "backwards through B, then outward" search.
func lookupSibling(c *config.Class, name string) *config.Class {
	body := containingBody(c)
	if found := searchBodyBackwardsFrom(body, c, name); found != nil {
		return found
	}
	enclosing := c.Enclosing
	for enclosing != nil {
		if found := searchBodyBackwardsFrom(enclosing.Body, nil, name); found != nil {
			return found
		}
		enclosing = enclosing.Enclosing
	}
	return nil
}

func containingBody(c *config.Class) []config.Node {
	if c.Enclosing == nil {
		return nil
	}
	return c.Enclosing.Body
}

// searchBodyBackwardsFrom scans body backwards for a Class named name,
// starting just before before (or from the end, if before is nil).
func searchBodyBackwardsFrom(body []config.Node, before *config.Class, name string) *config.Class {
	start := len(body) - 1
	if before != nil {
		for i, n := range body {
			if cls, ok := n.(*config.Class); ok && cls == before {
				start = i - 1
				break
			}
		}
	}
	for i := start; i >= 0; i-- {
		if cls, ok := body[i].(*config.Class); ok && cls.Name == name {
			return cls
		}
	}
	return nil
}

// Chain returns c followed by its resolved ancestors, root-most last. It
// stops (without error) at the first unresolvable or cyclic link; callers
// that need to distinguish "no parent" from "cycle" should call Parent
// themselves on the chain's tail.
func (r *Resolver) Chain(c *config.Class) []*config.Class {
	var chain []*config.Class
	seen := make(map[*config.Class]struct{})
	cur := c
	for cur != nil {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)
		parent, ok := r.Parent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	return chain
}

// HasCycle reports whether resolving c's ancestor chain revisits a class
// already on the chain.
func (r *Resolver) HasCycle(c *config.Class) bool {
	seen := make(map[*config.Class]struct{})
	cur := c
	for cur != nil {
		if _, ok := seen[cur]; ok {
			return true
		}
		seen[cur] = struct{}{}
		parent, ok := r.Parent(cur)
		if !ok {
			return false
		}
		cur = parent
	}
	return false
}

// Property looks up prop along c's inheritance chain: c's own body first,
// then its resolved parent's, recursively. Returns ok=false if prop is
// absent everywhere on the chain (distinct from being present with a zero
// value).
func (r *Resolver) Property(c *config.Class, name string) (*config.Property, bool) {
	for _, link := range r.Chain(c) {
		for _, n := range link.Body {
			if p, ok := n.(*config.Property); ok && p.Name == name {
				return p, true
			}
		}
	}
	return nil, false
}

// WalkClasses visits every Class in the tree, depth-first, calling fn with
// each class, starting with root itself. Used by rules that need every
// class regardless of nesting, and by the driver to seed per-class
// inheritance-cycle checks.
func WalkClasses(root *config.Class, fn func(*config.Class)) {
	var walk func(c *config.Class)
	walk = func(c *config.Class) {
		for _, n := range c.Body {
			if cls, ok := n.(*config.Class); ok {
				fn(cls)
				if !cls.Forward {
					walk(cls)
				}
			}
		}
	}
	fn(root)
	walk(root)
}

// reportCycle is a small shared helper so every rule that detects an
// inheritance cycle reports it identically.
func reportCycle(sink diag.Sink, c *config.Class) {
	sink.Report(diag.New(diag.CodeInheritanceCycle, c.NameSpan, "class %s participates in an inheritance cycle", c.Name))
}
