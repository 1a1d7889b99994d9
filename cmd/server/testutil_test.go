package main

import (
	"testing"

	"github.com/judgecore/engine/internal/config"
)

// testConfig builds a Config directly, bypassing config.Load so the test
// suite does not depend on environment variables or a real isolate binary.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:          "error",
		BindAddress:       "127.0.0.1:0",
		MetricsBind:       "127.0.0.1:0",
		DataDirectory:     t.TempDir(),
		IsolatePath:       "/usr/local/bin/isolate",
		BoxIDMin:          0,
		BoxIDMax:          3,
		CompileTimeoutMS:  10000,
		RunTimeoutMS:      5000,
		CompileCPUTimeMS:  8000,
		RunCPUTimeMS:      2000,
		MemoryLimitKB:     262144,
		FileSizeLimitKB:   51200,
		StackLimitKB:      65536,
		MaxProcessCount:   16,
		StdoutMaxBytes:    10000,
		StderrMaxBytes:    2000,
		DisableNetworking: true,
		InitRetryAttempts: 3,
	}
}
