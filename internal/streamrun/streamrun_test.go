package streamrun

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/judgecore/engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// delayedExecutor simulates tests completing out of order: each test's
// Input field carries its own index so the fake can look up its delay,
// and the runner must reorder before emitting regardless.
type delayedExecutor struct {
	delays  map[int]time.Duration
	verdict func(index int) types.Verdict
}

func (f *delayedExecutor) Execute(ctx context.Context, languageTag, variant, code string, test types.TestCase) types.VerdictResult {
	index, _ := strconv.Atoi(test.Input)
	if d, ok := f.delays[index]; ok {
		time.Sleep(d)
	}
	status := types.VerdictAC
	if f.verdict != nil {
		status = f.verdict(index)
	}
	return types.VerdictResult{Status: status}
}

func testCases(delays map[int]time.Duration) []types.TestCase {
	tests := make([]types.TestCase, len(delays))
	for i := range tests {
		tests[i] = types.TestCase{Input: strconv.Itoa(i), Expected: "ok"}
	}
	return tests
}

func TestEventOrderIsPreservedUnderConcurrency(t *testing.T) {
	delays := map[int]time.Duration{
		0: 30 * time.Millisecond,
		1: 20 * time.Millisecond,
		2: 40 * time.Millisecond,
		3: 5 * time.Millisecond,
		4: 0,
	}

	exec := &delayedExecutor{delays: delays}
	r := New(exec, 5)

	job := types.SubmissionJob{Language: "python", Tests: testCases(delays), Mode: types.ModeSubmit}

	var seq []string
	for ev := range r.Run(context.Background(), job) {
		seq = append(seq, ev.Type)
	}

	require.Len(t, seq, 7) // start + 5 tests + complete
	assert.Equal(t, "start", seq[0])
	for i := 1; i <= 5; i++ {
		assert.Equal(t, "test", seq[i])
	}
	assert.Equal(t, "complete", seq[6])
}

func TestEventIndicesMatchInputOrder(t *testing.T) {
	delays := map[int]time.Duration{0: 15 * time.Millisecond, 1: 5 * time.Millisecond, 2: 0}
	exec := &delayedExecutor{delays: delays}
	r := New(exec, 3)

	job := types.SubmissionJob{Language: "python", Tests: testCases(delays), Mode: types.ModeSubmit}

	var indices []int
	for ev := range r.Run(context.Background(), job) {
		if ev.Type == "test" {
			indices = append(indices, ev.Index)
		}
	}
	assert.Equal(t, []int{0, 1, 2}, indices)
}

func TestCustomRunNeedsInputTerminatesStream(t *testing.T) {
	exec := &delayedExecutor{
		delays:  map[int]time.Duration{},
		verdict: func(index int) types.Verdict { return types.VerdictNeedsInput },
	}
	r := New(exec, 1)
	job := types.SubmissionJob{Language: "python", Tests: []types.TestCase{{Input: "0"}}, Mode: types.ModeCustomRun}

	var sawError, sawComplete bool
	for ev := range r.Run(context.Background(), job) {
		if ev.Type == "error" {
			sawError = true
		}
		if ev.Type == "complete" {
			sawComplete = true
		}
	}
	assert.True(t, sawError)
	assert.False(t, sawComplete)
}

func TestEmptyTestListInSubmitModeEmitsError(t *testing.T) {
	exec := &delayedExecutor{delays: map[int]time.Duration{}}
	r := New(exec, 1)
	job := types.SubmissionJob{Language: "python", Tests: nil, Mode: types.ModeSubmit}

	var events []types.StreamEvent
	for ev := range r.Run(context.Background(), job) {
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "error", events[0].Type)
	assert.Equal(t, "complete", events[1].Type)
}

func TestEmptyTestListInCustomRunModeRunsOnce(t *testing.T) {
	exec := &delayedExecutor{delays: map[int]time.Duration{}}
	r := New(exec, 1)
	job := types.SubmissionJob{Language: "python", Tests: nil, Mode: types.ModeCustomRun}

	var seq []string
	var complete types.StreamEvent
	for ev := range r.Run(context.Background(), job) {
		seq = append(seq, ev.Type)
		if ev.Type == "complete" {
			complete = ev
		}
	}
	assert.Equal(t, []string{"start", "custom", "complete"}, seq)
	assert.Nil(t, complete.Summary, "custom-run complete event must not carry a summary")
}

func TestSubmitModeCompleteEventCarriesSummary(t *testing.T) {
	delays := map[int]time.Duration{0: 0, 1: 0}
	exec := &delayedExecutor{delays: delays}
	r := New(exec, 2)
	job := types.SubmissionJob{Language: "python", Tests: testCases(delays), Mode: types.ModeSubmit}

	var complete types.StreamEvent
	for ev := range r.Run(context.Background(), job) {
		if ev.Type == "complete" {
			complete = ev
		}
	}
	require.NotNil(t, complete.Summary)
	assert.Equal(t, 2, complete.Summary.Total)
}
