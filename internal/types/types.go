// Package types holds the shared data model for the execution core:
// language descriptors, test cases, submission jobs, sandbox boxes,
// isolate meta records and the verdict sum type.
package types

import "github.com/Masterminds/semver/v3"

// Verdict is the classified outcome of one test-case execution.
type Verdict string

const (
	VerdictAC         Verdict = "AC"
	VerdictWA         Verdict = "WA"
	VerdictCE         Verdict = "CE"
	VerdictRE         Verdict = "RE"
	VerdictTLE        Verdict = "TLE"
	VerdictMLE        Verdict = "MLE"
	VerdictRTE        Verdict = "RTE"
	VerdictIE         Verdict = "IE"
	VerdictOK         Verdict = "OK"
	VerdictNeedsInput Verdict = "NEEDS_INPUT"
)

// MetaStatus is the raw status tag the isolate meta file reports.
type MetaStatus string

const (
	MetaStatusOK MetaStatus = ""   // absent/empty means clean exit
	MetaStatusRE MetaStatus = "RE" // non-zero exit
	MetaStatusTO MetaStatus = "TO" // time limit exceeded
	MetaStatusSG MetaStatus = "SG" // killed by signal
	MetaStatusXX MetaStatus = "XX" // isolate-internal failure
)

// Meta is the parsed contents of an isolate meta file.
type Meta struct {
	Status   MetaStatus
	CPUTime  float64 // seconds
	WallTime float64 // seconds
	MemoryKB int64
	ExitCode int
}

// Language is an immutable descriptor of one supported language.
type Language struct {
	Tag            string
	Variant        *semver.Version
	SourceFileName string
	CompileArgv    []string // nil when the language needs no compile step
	RunArgv        []string
	Env            []string
	CompileTimeMS  int
	RunTimeMS      int
	MemoryLimitKB  int64
}

// IsCompiled reports whether the language descriptor carries a compile step.
func (l Language) IsCompiled() bool {
	return len(l.CompileArgv) > 0
}

// TestCase is one (input, expected output) pair for a submission.
type TestCase struct {
	Input    string
	Expected string
	IsSample bool
}

// Mode selects how a Streaming Runner treats the absence of expected output.
type Mode int

const (
	ModeSubmit Mode = iota
	ModeCustomRun
)

// SubmissionJob is the unit of work handed to the Streaming Runner.
type SubmissionJob struct {
	ID        string
	Language  string
	Variant   string // optional semver constraint, e.g. ">=3.10 <3.12"
	Code      string
	Tests     []TestCase
	Mode      Mode
	StartedAt int64 // unix seconds, stamped by the caller
}

// Box is one sandbox identifier plus its filesystem anchor.
type Box struct {
	ID           int
	Dir          string // <root>/<id>/box
	MetadataPath string
}

// OutputLimits bounds how much of a stage's stdout/stderr the Verdict
// Classifier (C4) keeps when building a VerdictResult.
type OutputLimits struct {
	StdoutMaxBytes int
	StderrMaxBytes int
}

// RunLimits bounds one isolate invocation.
type RunLimits struct {
	CPUTimeMS     int
	WallTimeMS    int
	MemoryLimitKB int64
	FileSizeKB    int64
	StackKB       int64
	MaxProcesses  int
}

// StageOutcome is the raw result of one compile-or-run invocation, before
// classification.
type StageOutcome struct {
	Stdout   string
	Stderr   string
	Meta     Meta
	ExitCode int
	TimedOut bool
}

// VerdictResult is a fully classified outcome for one test case.
type VerdictResult struct {
	Index      int
	IsSample   bool
	Status     Verdict
	Message    string
	Stdout     string
	Stderr     string
	Expected   string
	Input      string
	CPUTimeMS  int64
	WallTimeMS int64
	MemoryKB   int64
	ExitCode   int
}

// StreamEvent is one JSON-serializable message of the streaming protocol.
type StreamEvent struct {
	Type    string `json:"type"`
	Total   int    `json:"total,omitempty"`
	Index   int    `json:"index,omitempty"`
	Passed  int    `json:"passed,omitempty"`
	Failed  int    `json:"failed,omitempty"`
	Message string `json:"message,omitempty"`

	IsSample   bool   `json:"is_sample,omitempty"`
	Status     string `json:"status,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	Expected   string `json:"expected,omitempty"`
	CPUTimeMS  int64  `json:"cpu_time_ms,omitempty"`
	WallTimeMS int64  `json:"wall_time_ms,omitempty"`
	MemoryKB   int64  `json:"memory_kb,omitempty"`
	ExitCode   int    `json:"exit_code,omitempty"`

	Summary *Summary `json:"summary,omitempty"`
}

// Summary is the final aggregate attached to the "complete" event.
type Summary struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

// ErrorResponse is an API error payload, unchanged shape across the boundary.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// ExecuteRequest is the boundary payload for a single custom-run request.
type ExecuteRequest struct {
	Language string `json:"language" validate:"required"`
	Variant  string `json:"variant,omitempty"`
	Code     string `json:"code" validate:"required"`
	Stdin    string `json:"stdin,omitempty"`
}

// SubmitRequest is the boundary payload for a full test-suite submission,
// either inline or resolved via the Problem Metadata Client (C8).
type SubmitRequest struct {
	Language    string     `json:"language" validate:"required"`
	Variant     string     `json:"variant,omitempty"`
	Code        string     `json:"code" validate:"required"`
	ProblemSlug string     `json:"problem_slug,omitempty"`
	Tests       []TestCase `json:"tests,omitempty"`
}


// RuntimeInfo is the boundary-facing shape for GET /runtimes.
type RuntimeInfo struct {
	Language string   `json:"language"`
	Variant  string   `json:"variant,omitempty"`
	Aliases  []string `json:"aliases,omitempty"`
	Compiled bool     `json:"compiled"`
}

// ProblemPayload is what the Problem Metadata Client (C8) returns.
type ProblemPayload struct {
	Tests           []TestCase `json:"tests"`
	ExecutionTop    string     `json:"execution_top,omitempty"`
	ExecutionBottom string     `json:"execution_bottom,omitempty"`
}
