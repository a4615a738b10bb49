package cfgc

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/overturf/cfgc/preprocessor"
)

// FSResolver is the default, filesystem-backed PathResolver: quoted
// includes resolve relative to the including file's own directory; angled
// includes are searched across a configured list of root directories, in
// order (the HEMTT-style "project roots" case the preprocessor.IncludeMode
// split exists for).
type FSResolver struct {
	Roots []string
}

func NewFSResolver(roots ...string) *FSResolver {
	return &FSResolver{Roots: roots}
}

func (r *FSResolver) Resolve(currentFile, requested string, mode preprocessor.IncludeMode) (string, bool) {
	requested = toOSPath(requested)
	if mode == preprocessor.IncludeQuoted {
		candidate := filepath.Join(filepath.Dir(currentFile), requested)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	for _, root := range r.Roots {
		candidate := filepath.Join(root, requested)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	// quoted includes also fall back to the root list when not found
	// next to the including file, matching the common engine behavior of
	// quoted includes being angled includes with an extra first guess.
	if mode == preprocessor.IncludeQuoted {
		for _, root := range r.Roots {
			candidate := filepath.Join(root, requested)
			if fileExists(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// toOSPath translates the source language's own `\`-separator convention
// (HEMTT/Arma style, e.g. `#include "x\ace\something.hpp"`) to the host
// OS's filepath.Separator, so a backslash-separated include resolves on
// Linux/macOS as well as Windows.
func toOSPath(requested string) string {
	if filepath.Separator == '\\' {
		return requested
	}
	return strings.ReplaceAll(requested, `\`, string(filepath.Separator))
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// FSLoader reads files directly off disk.
type FSLoader struct{}

func (FSLoader) Load(p string) ([]byte, error) {
	return os.ReadFile(p)
}

// canonical turns p into an absolute, cleaned path (falling back to
// path.Clean if the working directory cannot be determined). It backs
// CanonicalPath; the preprocessor itself never calls it.
func canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return path.Clean(p)
	}
	return abs
}
