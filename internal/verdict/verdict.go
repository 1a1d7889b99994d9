// Package verdict implements the Verdict Classifier (C4): the decision
// procedure that turns a compile outcome, a run meta record, and an
// output comparison into one Verdict.
package verdict

import (
	"strings"

	"github.com/judgecore/engine/internal/types"
)

// needsInputMarkers are stderr substrings that distinguish a program
// killed by exhausted stdin from any other runtime error.
var needsInputMarkers = []string{
	"EOFError",
	"InputMismatchException",
	"NoSuchElementException",
	"EOF when reading",
	"Scanner is closed",
}

// defaultOutputLimits is used when a caller supplies a zero-value
// types.OutputLimits (e.g. existing tests written before output limits were
// configurable).
var defaultOutputLimits = types.OutputLimits{StdoutMaxBytes: 10000, StderrMaxBytes: 2000}

// Classify implements §4.4's decision procedure. compileStage is nil when
// the language needs no compile step. limits bounds how much of stdout/
// stderr is retained on the returned VerdictResult.
func Classify(compileStage *types.StageOutcome, runStage types.StageOutcome, expected string, memoryLimitKB int64, limits types.OutputLimits) types.VerdictResult {
	limits = resolveLimits(limits)

	if compileStage != nil && isCompileFailure(*compileStage) {
		return types.VerdictResult{
			Status:  types.VerdictCE,
			Message: "Compilation Error",
			Stderr:  truncate(compileStage.Stderr, limits.StderrMaxBytes),
		}
	}

	meta := runStage.Meta

	switch meta.Status {
	case types.MetaStatusTO:
		return withTiming(types.VerdictResult{Status: types.VerdictTLE, Message: "Time Limit Exceeded"}, runStage, limits)

	case types.MetaStatusSG:
		if meta.MemoryKB >= memoryLimitKB && memoryLimitKB > 0 {
			return withTiming(types.VerdictResult{Status: types.VerdictMLE, Message: "Memory Limit Exceeded"}, runStage, limits)
		}
		return withTiming(types.VerdictResult{Status: types.VerdictRTE, Message: "Runtime Error (Signal)"}, runStage, limits)

	case types.MetaStatusRE:
		if needsInput(runStage.Stderr) {
			return withTiming(types.VerdictResult{Status: types.VerdictNeedsInput, Message: "Waiting for input"}, runStage, limits)
		}
		return withTiming(types.VerdictResult{Status: types.VerdictRE, Message: "Runtime Error"}, runStage, limits)

	case types.MetaStatusXX:
		return withTiming(types.VerdictResult{Status: types.VerdictIE, Message: "Internal Error"}, runStage, limits)
	}

	// Clean exit.
	if expected == "" {
		return withTiming(types.VerdictResult{Status: types.VerdictOK, Message: "Accepted"}, runStage, limits)
	}

	if Normalize(runStage.Stdout) == Normalize(expected) {
		return withTiming(types.VerdictResult{Status: types.VerdictAC, Message: "Accepted"}, runStage, limits)
	}

	// Whitespace-collapsed fallback before declaring WA.
	if collapse(Normalize(runStage.Stdout)) == collapse(Normalize(expected)) {
		return withTiming(types.VerdictResult{Status: types.VerdictAC, Message: "Accepted (whitespace-normalized)"}, runStage, limits)
	}

	return withTiming(types.VerdictResult{Status: types.VerdictWA, Message: "Wrong Answer"}, runStage, limits)
}

// resolveLimits falls back to defaultOutputLimits field-by-field for any
// non-positive value, so a caller that hasn't wired configurable limits
// still gets sane truncation instead of unbounded output.
func resolveLimits(limits types.OutputLimits) types.OutputLimits {
	if limits.StdoutMaxBytes <= 0 {
		limits.StdoutMaxBytes = defaultOutputLimits.StdoutMaxBytes
	}
	if limits.StderrMaxBytes <= 0 {
		limits.StderrMaxBytes = defaultOutputLimits.StderrMaxBytes
	}
	return limits
}

func isCompileFailure(stage types.StageOutcome) bool {
	if stage.Meta.Status != types.MetaStatusOK {
		return true
	}
	return stage.ExitCode != 0
}

func needsInput(stderr string) bool {
	for _, marker := range needsInputMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

func withTiming(v types.VerdictResult, stage types.StageOutcome, limits types.OutputLimits) types.VerdictResult {
	v.Stdout = truncate(stage.Stdout, limits.StdoutMaxBytes)
	v.Stderr = truncate(stage.Stderr, limits.StderrMaxBytes)
	v.CPUTimeMS = int64(stage.Meta.CPUTime * 1000)
	v.WallTimeMS = int64(stage.Meta.WallTime * 1000)
	v.MemoryKB = stage.Meta.MemoryKB
	v.ExitCode = stage.Meta.ExitCode
	return v
}

// Normalize trims trailing whitespace from every line and strips leading
// and trailing blank lines. It is idempotent: Normalize(Normalize(x)) ==
// Normalize(x) for any x.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

// collapse reduces every maximal run of whitespace to a single space; used
// only as the second-stage fallback comparison, never as the primary rule.
func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
