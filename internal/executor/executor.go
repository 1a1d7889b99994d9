// Package executor implements the Single-Test Executor (C5): it
// orchestrates the Box Pool, Sandbox Driver, Language Registry and
// Verdict Classifier for exactly one (code, input, expected) triple.
package executor

import (
	"context"
	"fmt"

	"github.com/judgecore/engine/internal/boxpool"
	"github.com/judgecore/engine/internal/config"
	"github.com/judgecore/engine/internal/language"
	"github.com/judgecore/engine/internal/sandbox"
	"github.com/judgecore/engine/internal/types"
	"github.com/judgecore/engine/internal/verdict"
	"github.com/sirupsen/logrus"
)

// Executor runs single test cases to a classified verdict.
type Executor struct {
	pool     *boxpool.Pool
	driver   *sandbox.Driver
	registry *language.Registry
	cfg      *config.Config
	logger   *logrus.Entry
}

// New builds an Executor from its collaborators.
func New(pool *boxpool.Pool, driver *sandbox.Driver, registry *language.Registry, cfg *config.Config) *Executor {
	return &Executor{
		pool:     pool,
		driver:   driver,
		registry: registry,
		cfg:      cfg,
		logger:   logrus.WithField("component", "executor"),
	}
}

// Execute runs one test case to a classified VerdictResult. An unknown
// language tag is reported as IE before any box is acquired; once a box is
// acquired, it is released exactly once, via a deferred cleanup that fires
// on every later return path, including a panic.
func (e *Executor) Execute(ctx context.Context, languageTag, variant, code string, test types.TestCase) (result types.VerdictResult) {
	lang, err := e.registry.Lookup(languageTag, variant)
	if err != nil {
		e.logger.WithError(err).Warn("language lookup failed")
		return types.VerdictResult{Status: types.VerdictIE, Message: err.Error()}
	}

	id, err := e.pool.Acquire(ctx)
	if err != nil {
		return types.VerdictResult{Status: types.VerdictIE, Message: fmt.Sprintf("box pool acquire failed: %v", err)}
	}

	var box *types.Box
	defer func() {
		if box != nil {
			e.driver.Cleanup(context.Background(), box)
		}
		e.pool.Release(id)
		if r := recover(); r != nil {
			e.logger.WithField("panic", r).Error("executor panicked mid-run")
			result = types.VerdictResult{Status: types.VerdictIE, Message: "internal error"}
		}
	}()

	box, err = e.driver.Init(ctx, id)
	if err != nil {
		e.logger.WithError(err).WithField("box_id", id).Error("sandbox init failed")
		return types.VerdictResult{Status: types.VerdictIE, Message: "sandbox initialization failed"}
	}

	if err := e.driver.WriteSource(box, lang.SourceFileName, code); err != nil {
		e.logger.WithError(err).Error("failed to write source")
		return types.VerdictResult{Status: types.VerdictIE, Message: "failed to write source file"}
	}

	var compileOutcome *types.StageOutcome
	if lang.IsCompiled() {
		limits := types.RunLimits{
			CPUTimeMS:     lang.CompileTimeMS,
			WallTimeMS:    e.cfg.CompileTimeoutMS,
			MemoryLimitKB: lang.MemoryLimitKB,
			FileSizeKB:    e.cfg.FileSizeLimitKB,
			StackKB:       e.cfg.StackLimitKB,
			MaxProcesses:  e.cfg.MaxProcessCount,
		}
		run, err := e.driver.Run(ctx, box, lang.CompileArgv, "", lang.Env, limits)
		if err != nil {
			return types.VerdictResult{Status: types.VerdictIE, Message: fmt.Sprintf("compile invocation failed: %v", err)}
		}
		outcome := types.StageOutcome{Stdout: run.Stdout, Stderr: run.Stderr, Meta: run.Meta, ExitCode: run.Meta.ExitCode}
		compileOutcome = &outcome

		if isCE(outcome) {
			v := verdict.Classify(compileOutcome, types.StageOutcome{}, test.Expected, lang.MemoryLimitKB, e.outputLimits())
			return v
		}
	}

	limits := types.RunLimits{
		CPUTimeMS:     lang.RunTimeMS,
		WallTimeMS:    e.cfg.RunTimeoutMS,
		MemoryLimitKB: lang.MemoryLimitKB,
		FileSizeKB:    e.cfg.FileSizeLimitKB,
		StackKB:       e.cfg.StackLimitKB,
		MaxProcesses:  e.cfg.MaxProcessCount,
	}

	run, err := e.driver.Run(ctx, box, lang.RunArgv, test.Input, lang.Env, limits)
	if err != nil {
		return types.VerdictResult{Status: types.VerdictIE, Message: fmt.Sprintf("run invocation failed: %v", err)}
	}

	runOutcome := types.StageOutcome{Stdout: run.Stdout, Stderr: run.Stderr, Meta: run.Meta, ExitCode: run.Meta.ExitCode}
	v := verdict.Classify(nil, runOutcome, test.Expected, lang.MemoryLimitKB, e.outputLimits())
	v.Input = truncate(test.Input, 1000)
	v.Expected = truncate(test.Expected, 1000)
	v.IsSample = test.IsSample
	return v
}

func (e *Executor) outputLimits() types.OutputLimits {
	return types.OutputLimits{StdoutMaxBytes: e.cfg.StdoutMaxBytes, StderrMaxBytes: e.cfg.StderrMaxBytes}
}

func isCE(stage types.StageOutcome) bool {
	if stage.Meta.Status != types.MetaStatusOK {
		return true
	}
	return stage.ExitCode != 0
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
