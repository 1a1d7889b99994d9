package verdict

import (
	"testing"

	"github.com/judgecore/engine/internal/types"
	"github.com/stretchr/testify/assert"
)

var testLimits = types.OutputLimits{StdoutMaxBytes: 10000, StderrMaxBytes: 2000}

func TestNormalizeIsIdempotent(t *testing.T) {
	cases := []string{
		"hello\nworld\n\n",
		"  \n\nhello \t\nworld\t\n  \n",
		"",
		"single line",
	}
	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize not idempotent for %q", c)
	}
}

func TestClassifyAC(t *testing.T) {
	run := types.StageOutcome{
		Stdout: "Hello World\n",
		Meta:   types.Meta{Status: types.MetaStatusOK},
	}
	v := Classify(nil, run, "Hello World", 262144, testLimits)
	assert.Equal(t, types.VerdictAC, v.Status)
}

func TestClassifyWA(t *testing.T) {
	run := types.StageOutcome{
		Stdout: "5\n",
		Meta:   types.Meta{Status: types.MetaStatusOK},
	}
	v := Classify(nil, run, "10", 262144, testLimits)
	assert.Equal(t, types.VerdictWA, v.Status)
}

func TestClassifyOKWithoutExpected(t *testing.T) {
	run := types.StageOutcome{
		Stdout: "whatever\n",
		Meta:   types.Meta{Status: types.MetaStatusOK},
	}
	v := Classify(nil, run, "", 262144, testLimits)
	assert.Equal(t, types.VerdictOK, v.Status)
}

func TestClassifyTLE(t *testing.T) {
	run := types.StageOutcome{Meta: types.Meta{Status: types.MetaStatusTO, CPUTime: 2.1}}
	v := Classify(nil, run, "", 262144, testLimits)
	assert.Equal(t, types.VerdictTLE, v.Status)
}

func TestClassifySignalMLEvsRTE(t *testing.T) {
	mle := Classify(nil, types.StageOutcome{Meta: types.Meta{Status: types.MetaStatusSG, MemoryKB: 300000}}, "", 262144, testLimits)
	assert.Equal(t, types.VerdictMLE, mle.Status)

	rte := Classify(nil, types.StageOutcome{Meta: types.Meta{Status: types.MetaStatusSG, MemoryKB: 1000}}, "", 262144, testLimits)
	assert.Equal(t, types.VerdictRTE, rte.Status)
}

func TestClassifyNeedsInput(t *testing.T) {
	run := types.StageOutcome{
		Stderr: "Traceback...\nEOFError: EOF when reading a line",
		Meta:   types.Meta{Status: types.MetaStatusRE, ExitCode: 1},
	}
	v := Classify(nil, run, "", 262144, testLimits)
	assert.Equal(t, types.VerdictNeedsInput, v.Status)
}

func TestClassifyPlainRuntimeError(t *testing.T) {
	run := types.StageOutcome{
		Stderr: "ZeroDivisionError: division by zero",
		Meta:   types.Meta{Status: types.MetaStatusRE, ExitCode: 1},
	}
	v := Classify(nil, run, "", 262144, testLimits)
	assert.Equal(t, types.VerdictRE, v.Status)
}

func TestClassifyCompileError(t *testing.T) {
	compile := types.StageOutcome{
		Stderr:   "error: expected ';' before '}' token",
		ExitCode: 1,
		Meta:     types.Meta{ExitCode: 1, Status: types.MetaStatusRE},
	}
	v := Classify(&compile, types.StageOutcome{}, "", 262144, testLimits)
	assert.Equal(t, types.VerdictCE, v.Status)
}

func TestClassifyWhitespaceCollapsedFallbackStillAccepts(t *testing.T) {
	run := types.StageOutcome{
		Stdout: "3   7\n",
		Meta:   types.Meta{Status: types.MetaStatusOK},
	}
	v := Classify(nil, run, "3 7", 262144, testLimits)
	assert.Equal(t, types.VerdictAC, v.Status)
}
