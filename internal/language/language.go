// Package language implements the static Language Registry (C1): a fixed
// table from language tag to source filename, optional compile command,
// run command and environment, with an optional semver-constrained variant
// lookup for languages that keep more than one installed toolchain build.
package language

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/judgecore/engine/internal/types"
)

// entry is one installed toolchain build for a language tag.
type entry struct {
	variant *semver.Version
	lang    types.Language
}

// Registry is an immutable, process-wide table of language descriptors.
type Registry struct {
	byTag map[string][]entry
}

// NewRegistry builds the default registry. The table is static; adding a
// language is a single append below.
func NewRegistry() *Registry {
	r := &Registry{byTag: map[string][]entry{}}

	r.add("python", "3.11.0", types.Language{
		Tag:            "python",
		SourceFileName: "main.py",
		RunArgv:        []string{"/usr/bin/python3", "main.py"},
		Env:            []string{"PYTHONIOENCODING=utf-8"},
		RunTimeMS:      2000,
		MemoryLimitKB:  262144,
	})

	r.add("c", "12.2.0", types.Language{
		Tag:            "c",
		SourceFileName: "main.c",
		CompileArgv:    []string{"/usr/bin/gcc", "main.c", "-O2", "-static", "-o", "main"},
		RunArgv:        []string{"./main"},
		CompileTimeMS:  10000,
		RunTimeMS:      2000,
		MemoryLimitKB:  262144,
	})

	r.add("cpp", "12.2.0", types.Language{
		Tag:            "cpp",
		SourceFileName: "main.cpp",
		CompileArgv:    []string{"/usr/bin/g++", "main.cpp", "-O2", "-static", "-o", "main"},
		RunArgv:        []string{"./main"},
		CompileTimeMS:  10000,
		RunTimeMS:      2000,
		MemoryLimitKB:  262144,
	})

	r.add("java", "17.0.5", types.Language{
		Tag:            "java",
		SourceFileName: "Solution.java",
		CompileArgv:    []string{"/usr/bin/javac", "Solution.java"},
		RunArgv:        []string{"/usr/bin/java", "-Xss8m", "Solution"},
		CompileTimeMS:  15000,
		RunTimeMS:      4000,
		MemoryLimitKB:  524288,
	})

	r.add("go", "1.21.0", types.Language{
		Tag:            "go",
		SourceFileName: "main.go",
		CompileArgv:    []string{"/usr/local/go/bin/go", "build", "-o", "main", "main.go"},
		RunArgv:        []string{"./main"},
		Env:            []string{"GOCACHE=/tmp/gocache", "GOPATH=/tmp/gopath"},
		CompileTimeMS:  15000,
		RunTimeMS:      2000,
		MemoryLimitKB:  262144,
	})

	r.add("javascript", "20.9.0", types.Language{
		Tag:            "javascript",
		SourceFileName: "main.js",
		RunArgv:        []string{"/usr/bin/node", "main.js"},
		RunTimeMS:      2000,
		MemoryLimitKB:  262144,
	})

	r.add("typescript", "5.2.2", types.Language{
		Tag:            "typescript",
		SourceFileName: "main.ts",
		CompileArgv:    []string{"/usr/bin/tsc", "main.ts"},
		RunArgv:        []string{"/usr/bin/node", "main.js"},
		CompileTimeMS:  10000,
		RunTimeMS:      2000,
		MemoryLimitKB:  262144,
	})

	// A second, older CPython build kept around for reproducibility of
	// submissions judged before the 3.11 upgrade.
	r.add("python", "3.8.16", types.Language{
		Tag:            "python",
		SourceFileName: "main.py",
		RunArgv:        []string{"/usr/local/python3.8/bin/python3", "main.py"},
		Env:            []string{"PYTHONIOENCODING=utf-8"},
		RunTimeMS:      2000,
		MemoryLimitKB:  262144,
	})

	return r
}

func (r *Registry) add(tag, version string, lang types.Language) {
	v := semver.MustParse(version)
	lang.Variant = v
	r.byTag[tag] = append(r.byTag[tag], entry{variant: v, lang: lang})
}

// ErrUnsupportedLanguage is returned when a tag has no registry entry.
type ErrUnsupportedLanguage struct {
	Tag string
}

func (e ErrUnsupportedLanguage) Error() string {
	return fmt.Sprintf("unsupported language: %s", e.Tag)
}

// ErrNoMatchingVariant is returned when a tag exists but no installed
// build satisfies the requested constraint.
type ErrNoMatchingVariant struct {
	Tag, Constraint string
}

func (e ErrNoMatchingVariant) Error() string {
	return fmt.Sprintf("no installed build of %s satisfies %q", e.Tag, e.Constraint)
}

// Lookup resolves a language tag (and optional semver constraint) to its
// descriptor. An empty constraint selects the highest installed version.
func (r *Registry) Lookup(tag, constraint string) (types.Language, error) {
	entries, ok := r.byTag[tag]
	if !ok {
		return types.Language{}, ErrUnsupportedLanguage{Tag: tag}
	}

	if constraint == "" {
		best := entries[0]
		for _, e := range entries[1:] {
			if e.variant.GreaterThan(best.variant) {
				best = e
			}
		}
		return best.lang, nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return types.Language{}, fmt.Errorf("invalid variant constraint %q: %w", constraint, err)
	}

	var best *entry
	for i := range entries {
		e := entries[i]
		if !c.Check(e.variant) {
			continue
		}
		if best == nil || e.variant.GreaterThan(best.variant) {
			best = &e
		}
	}
	if best == nil {
		return types.Language{}, ErrNoMatchingVariant{Tag: tag, Constraint: constraint}
	}
	return best.lang, nil
}

// List returns the boundary-facing runtime listing, one entry per
// installed (tag, variant) pair.
func (r *Registry) List() []types.RuntimeInfo {
	out := make([]types.RuntimeInfo, 0)
	for tag, entries := range r.byTag {
		for _, e := range entries {
			out = append(out, types.RuntimeInfo{
				Language: tag,
				Variant:  e.variant.String(),
				Compiled: e.lang.IsCompiled(),
			})
		}
	}
	return out
}
