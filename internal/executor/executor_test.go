package executor

import (
	"context"
	"testing"

	"github.com/judgecore/engine/internal/boxpool"
	"github.com/judgecore/engine/internal/config"
	"github.com/judgecore/engine/internal/language"
	"github.com/judgecore/engine/internal/sandbox"
	"github.com/judgecore/engine/internal/types"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	return &config.Config{
		IsolatePath:       "/usr/local/bin/isolate",
		BoxIDMin:          0,
		BoxIDMax:          1,
		CompileTimeoutMS:  10000,
		RunTimeoutMS:      5000,
		CompileCPUTimeMS:  8000,
		RunCPUTimeMS:      2000,
		MemoryLimitKB:     262144,
		FileSizeLimitKB:   51200,
		StackLimitKB:      65536,
		MaxProcessCount:   16,
		InitRetryAttempts: 1,
	}
}

// TestUnsupportedLanguageNeverTouchesSandbox verifies the executor reports
// IE for an unknown language tag without acquiring a box, since the real
// sandbox driver requires an isolate binary that is not present in this
// test environment.
func TestUnsupportedLanguageNeverTouchesSandbox(t *testing.T) {
	cfg := testConfig()
	pool := boxpool.New(cfg.BoxIDMin, cfg.BoxIDMax, nil)
	driver := sandbox.New(cfg)
	registry := language.NewRegistry()
	exec := New(pool, driver, registry, cfg)

	statsBefore := pool.Stats()

	result := exec.Execute(context.Background(), "brainfuck", "", "code", types.TestCase{})
	assert.Equal(t, types.VerdictIE, result.Status)

	statsAfter := pool.Stats()
	assert.Equal(t, statsBefore.InUse, statsAfter.InUse, "unsupported-language path must not leak a box acquisition")
}
