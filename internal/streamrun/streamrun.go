// Package streamrun implements the Streaming Runner (C6): it dispatches
// every test case in a submission concurrently, bounded by the box pool's
// capacity, and emits one event per test strictly in input order via
// sourcegraph/conc's ordered stream primitive.
package streamrun

import (
	"context"

	"github.com/judgecore/engine/internal/types"
	"github.com/sourcegraph/conc/stream"
)

// Executor runs one test case to a classified verdict. Satisfied by
// *executor.Executor; named here so the runner can be driven by a fake in
// tests without invoking the real sandbox.
type Executor interface {
	Execute(ctx context.Context, languageTag, variant, code string, test types.TestCase) types.VerdictResult
}

// Runner drives one submission job to completion, emitting events on the
// returned channel. The channel is closed once the final event (complete,
// or error in custom-run mode) has been sent.
type Runner struct {
	exec        Executor
	maxParallel int
}

// New builds a Runner bounded to maxParallel concurrent test executions.
func New(exec Executor, maxParallel int) *Runner {
	return &Runner{exec: exec, maxParallel: maxParallel}
}

// Run streams events for job to the returned channel. If ctx is cancelled
// mid-stream, in-flight executions are abandoned (their own deferred
// cleanup still releases their boxes) and the channel is closed without a
// complete event.
func (r *Runner) Run(ctx context.Context, job types.SubmissionJob) <-chan types.StreamEvent {
	events := make(chan types.StreamEvent, 8)

	go func() {
		defer close(events)

		tests := job.Tests
		if len(tests) == 0 {
			if job.Mode == types.ModeCustomRun {
				tests = []types.TestCase{{}}
			} else {
				select {
				case events <- types.StreamEvent{Type: "error", Message: "submission has no test cases"}:
				case <-ctx.Done():
					return
				}
				select {
				case events <- types.StreamEvent{Type: "complete", Summary: &types.Summary{}}:
				case <-ctx.Done():
				}
				return
			}
		}

		select {
		case events <- types.StreamEvent{Type: "start", Total: len(tests)}:
		case <-ctx.Done():
			return
		}

		maxGoroutines := r.maxParallel
		if maxGoroutines <= 0 || maxGoroutines > len(tests) {
			maxGoroutines = len(tests)
		}
		s := stream.New().WithMaxGoroutines(maxGoroutines)

		passed, failed := 0, 0
		aborted := false

		for i, tc := range tests {
			index, test := i, tc
			s.Go(func() stream.Callback {
				if ctx.Err() != nil {
					return func() {}
				}
				v := r.exec.Execute(ctx, job.Language, job.Variant, job.Code, test)
				v.Index = index

				return func() {
					if aborted {
						return
					}

					eventType := "test"
					if job.Mode == types.ModeCustomRun {
						eventType = "custom"
					}

					if v.Status == types.VerdictAC || v.Status == types.VerdictOK {
						passed++
					} else if job.Mode == types.ModeSubmit {
						failed++
					}

					ev := types.StreamEvent{
						Type:       eventType,
						Index:      v.Index,
						IsSample:   v.IsSample,
						Status:     string(v.Status),
						Message:    v.Message,
						Stdout:     v.Stdout,
						Stderr:     v.Stderr,
						Expected:   v.Expected,
						CPUTimeMS:  v.CPUTimeMS,
						WallTimeMS: v.WallTimeMS,
						MemoryKB:   v.MemoryKB,
						ExitCode:   v.ExitCode,
						Passed:     passed,
						Failed:     failed,
					}

					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}

					if job.Mode == types.ModeCustomRun && v.Status == types.VerdictNeedsInput {
						aborted = true
						select {
						case events <- types.StreamEvent{Type: "error", Message: "program is waiting for input that was never supplied"}:
						case <-ctx.Done():
						}
					}
				}
			})
		}

		s.Wait()

		if ctx.Err() != nil || aborted {
			return
		}

		ev := types.StreamEvent{Type: "complete"}
		if job.Mode == types.ModeSubmit {
			total := len(tests)
			summary := &types.Summary{Total: total, Passed: passed, Failed: failed}
			if total > 0 {
				summary.SuccessRate = float64(passed) / float64(total) * 100
			}
			ev.Summary = summary
		}

		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}()

	return events
}
