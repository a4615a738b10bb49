package analyze

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/overturf/cfgc/config"
	"github.com/overturf/cfgc/diag"
	"github.com/overturf/cfgc/source"
)

// findTopLevelChild returns the direct child of root named name, matching
// case-insensitively -- the host engine's own class-name comparison in
// this one area (spec 4.4's CfgPatches rule explicitly calls out
// case-insensitive class names here, case-sensitive everywhere else).
func findTopLevelChild(root *config.Class, name string) *config.Class {
	for _, n := range root.Body {
		if c, ok := n.(*config.Class); ok && strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// findDescendant searches c's subtree (including c itself) for a class
// named name, case-insensitively, depth-first.
func findDescendant(c *config.Class, name string) *config.Class {
	if strings.EqualFold(c.Name, name) {
		return c
	}
	for _, n := range c.Body {
		if child, ok := n.(*config.Class); ok {
			if found := findDescendant(child, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// resolvedScope returns prop.scope resolved along c's inheritance chain as
// an integer, defaulting to 0 (not public) when absent or not numeric. A
// float scope is truncated toward zero.
func resolvedScope(c *config.Class, r *Resolver) int64 {
	prop, ok := r.Property(c, "scope")
	if !ok {
		return 0
	}
	switch prop.Value.Kind {
	case config.ValueInt:
		return prop.Value.Int
	case config.ValueFloat:
		return int64(prop.Value.Float)
	default:
		return 0
	}
}

// RuleCfgPatchesScope is the representative rule from spec 4.4: every class
// named in a CfgPatches.<addon>.units[]/weapons[] array must resolve,
// anywhere under the top-level CfgVehicles/CfgWeapons class respectively,
// to a class whose inherited scope is exactly 2.
func RuleCfgPatchesScope(root *config.Class, r *Resolver, sink diag.Sink) {
	patches := findTopLevelChild(root, "CfgPatches")
	if patches == nil {
		return
	}
	vehicles := findTopLevelChild(root, "CfgVehicles")
	weapons := findTopLevelChild(root, "CfgWeapons")

	for _, n := range patches.Body {
		addon, ok := n.(*config.Class)
		if !ok {
			continue
		}
		checkScopeArray(addon, r, sink, "units", vehicles)
		checkScopeArray(addon, r, sink, "weapons", weapons)
	}
}

func checkScopeArray(addon *config.Class, r *Resolver, sink diag.Sink, propName string, container *config.Class) {
	prop, ok := r.Property(addon, propName)
	if !ok || prop.Value.Kind != config.ValueArray {
		return
	}
	for _, el := range prop.Value.Array {
		if el.Kind != config.ValueString {
			continue
		}
		name := el.Str
		var target *config.Class
		if container != nil {
			target = findDescendant(container, name)
			if strings.EqualFold(container.Name, name) {
				// the container class itself is never a valid target, even
				// if its own name happens to match a requested entry
				target = nil
			}
		}
		if target == nil {
			sink.Report(diag.New(diag.CodeMissingClass, el.Span, "no class named %q found under Cfg%s", name, containerLabel(propName)))
			continue
		}
		if resolvedScope(target, r) != 2 {
			sink.Report(diag.New(diag.CodeNonPublicScope, el.Span, "class %s is not scope 2 (public)", name))
		}
	}
}

func containerLabel(propName string) string {
	if propName == "units" {
		return "Vehicles"
	}
	return "Weapons"
}

// RuleDuplicateProperty flags a class body declaring the same property name
// more than once at the same nesting level. Parsing itself preserves every
// occurrence (spec 3: duplicates are kept, not rejected); this rule is what
// surfaces them as a diagnostic.
func RuleDuplicateProperty(root *config.Class, r *Resolver, sink diag.Sink) {
	WalkClasses(root, func(c *config.Class) {
		checkDuplicatesIn(c, sink)
	})
}

func checkDuplicatesIn(c *config.Class, sink diag.Sink) {
	seen := make(map[string]*config.Property)
	for _, n := range c.Body {
		p, ok := n.(*config.Property)
		if !ok {
			continue
		}
		if first, dup := seen[p.Name]; dup {
			sink.Report(diag.Diagnostic{
				Severity:  diag.DefaultSeverity(diag.CodeDuplicateProperty),
				Code:      diag.CodeDuplicateProperty,
				Primary:   p.NameSpan,
				Secondary: []source.Span{first.NameSpan},
				Message:   "property " + p.Name + " is declared more than once in this body",
			})
			continue
		}
		seen[p.Name] = p
	}
}

// RuleUndeclaredParent flags a class that declares `: P` but whose parent
// cannot be located by the locality lookup -- distinct from
// InheritanceCycle, which covers parents that ARE found but form a loop.
func RuleUndeclaredParent(root *config.Class, r *Resolver, sink diag.Sink) {
	WalkClasses(root, func(c *config.Class) {
		if !c.HasParent || c.Forward {
			return
		}
		if _, ok := r.Parent(c); !ok && !r.HasCycle(c) {
			sink.Report(diag.New(diag.CodeUndeclaredParent, c.NameSpan, "parent class %s of %s could not be found", c.Parent, c.Name))
		}
	})
}

// RuleArrayAppendWithoutBase flags `name[] += {...}` where no array-kind
// `name` exists anywhere earlier in the class's resolved inheritance chain
// to append onto (spec 3: "a semantic rule, not a parse error").
func RuleArrayAppendWithoutBase(root *config.Class, r *Resolver, sink diag.Sink) {
	WalkClasses(root, func(c *config.Class) {
		for _, n := range c.Body {
			p, ok := n.(*config.Property)
			if !ok || !p.Append {
				continue
			}
			if !hasArrayBaseInAncestors(c, r, p.Name) {
				sink.Report(diag.New(diag.CodeArrayAppendNoBase, p.NameSpan, "%s[] += has no preceding array-valued %s in the inheritance chain", p.Name, p.Name))
			}
		}
	})
}

// hasArrayBaseInAncestors looks for an array-kind property named name in
// c's own ancestors (not c itself, since the += declaration on c is the
// one being validated, and a later same-name += in c's own body is not a
// base either -- only an inherited one counts).
func hasArrayBaseInAncestors(c *config.Class, r *Resolver, name string) bool {
	chain := r.Chain(c)
	for _, ancestor := range chain[1:] {
		for _, n := range ancestor.Body {
			if p, ok := n.(*config.Property); ok && p.Name == name && p.IsArray && !p.Append {
				return true
			}
		}
	}
	return false
}

// RuleRequiredVersionFormat validates CfgPatches.<addon>.requiredVersion
// values against dotted numeric version shape, domain-stack wiring for
// golang.org/x/mod/semver: the config format has no leading "v" and no
// build metadata, so one to three dotted components are normalized to
// "vMAJOR.MINOR.PATCH" (missing components padded with 0) before being
// handed to semver, which only accepts its own canonical form.
func RuleRequiredVersionFormat(root *config.Class, r *Resolver, sink diag.Sink) {
	patches := findTopLevelChild(root, "CfgPatches")
	if patches == nil {
		return
	}
	for _, n := range patches.Body {
		addon, ok := n.(*config.Class)
		if !ok {
			continue
		}
		prop, ok := r.Property(addon, "requiredVersion")
		if !ok {
			continue
		}
		text, ok := versionText(prop.Value)
		if !ok {
			sink.Report(diag.New(diag.CodeRequiredVersion, prop.Span, "requiredVersion on %s must be a numeric or string version", addon.Name))
			continue
		}
		normalized, ok := normalizeVersion(text)
		if !ok || !semver.IsValid(normalized) {
			sink.Report(diag.New(diag.CodeRequiredVersion, prop.Span, "requiredVersion %q on %s is not a dotted MAJOR.MINOR[.PATCH] version", text, addon.Name))
		}
	}
}

func versionText(v config.Value) (string, bool) {
	switch v.Kind {
	case config.ValueString:
		return v.Str, true
	case config.ValueFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64), true
	case config.ValueInt:
		return strconv.FormatInt(v.Int, 10), true
	default:
		return "", false
	}
}

// normalizeVersion turns "1.6" / "1" / "1.6.2" into the "vX.Y.Z" form
// golang.org/x/mod/semver requires, padding missing components with 0.
func normalizeVersion(text string) (string, bool) {
	parts := strings.Split(text, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return "", false
	}
	for _, p := range parts {
		if p == "" {
			return "", false
		}
		if _, err := strconv.Atoi(p); err != nil {
			return "", false
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return "v" + strings.Join(parts, "."), true
}
