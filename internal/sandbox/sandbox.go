// Package sandbox implements the Sandbox Driver (C2): it wraps the
// isolate(1) binary's init/run/cleanup contract, writes the source file and
// the (always-present) input.txt, parses the meta file it produces, and
// enforces a supervisory wall-clock timeout around the child process.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/judgecore/engine/internal/config"
	"github.com/judgecore/engine/internal/types"
	"github.com/sirupsen/logrus"
)

// Driver invokes the isolate binary on behalf of the executor.
type Driver struct {
	isolatePath   string
	retryAttempts int
	disableNet    bool
	logger        *logrus.Entry
}

// New builds a Driver from configuration.
func New(cfg *config.Config) *Driver {
	return &Driver{
		isolatePath:   cfg.IsolatePath,
		retryAttempts: cfg.InitRetryAttempts,
		disableNet:    cfg.DisableNetworking,
		logger:        logrus.WithField("component", "sandbox"),
	}
}

// Init creates a fresh box directory for id, retrying on the class of
// "unexpected mountpoint" failures isolate reports when a previous box
// was not torn down cleanly. Each attempt does a full cleanup-then-init
// cycle, per §4.2 of the execution spec.
func (d *Driver) Init(ctx context.Context, id int) (*types.Box, error) {
	var lastErr error
	for attempt := 1; attempt <= d.retryAttempts; attempt++ {
		_ = d.cleanupQuiet(ctx, id)

		cmd := exec.CommandContext(ctx, d.isolatePath, "--init", "--cg", fmt.Sprintf("--box-id=%d", id))
		out, err := cmd.Output()
		if err == nil {
			dir := strings.TrimSpace(string(out))
			if dir == "" {
				lastErr = fmt.Errorf("isolate --init returned empty output")
				continue
			}
			return &types.Box{
				ID:           id,
				Dir:          filepath.Join(dir, "box"),
				MetadataPath: filepath.Join(os.TempDir(), fmt.Sprintf("judge-box-%d-meta.txt", id)),
			}, nil
		}

		lastErr = fmt.Errorf("isolate init attempt %d/%d failed: %w", attempt, d.retryAttempts, err)
		d.logger.WithError(err).WithField("box_id", id).Warn("isolate init failed, retrying")

		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// WriteSource writes the submission's source file into the box.
func (d *Driver) WriteSource(box *types.Box, filename, content string) error {
	if strings.Contains(filename, "..") {
		return fmt.Errorf("invalid source file name: %s", filename)
	}
	path := filepath.Join(box.Dir, filename)
	rel, err := filepath.Rel(box.Dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path traversal detected: %s", filename)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create box directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// RunResult is the raw product of one isolate --run invocation.
type RunResult struct {
	Stdout string
	Stderr string
	Meta   types.Meta
}

// Run executes argv inside the box under the given limits. stdin is always
// written to input.txt inside the box, even when empty, so a program that
// probes for EOF sees a definite empty file rather than a missing path.
func (d *Driver) Run(ctx context.Context, box *types.Box, argv []string, stdin string, env []string, limits types.RunLimits) (*RunResult, error) {
	if err := os.WriteFile(filepath.Join(box.Dir, "input.txt"), []byte(stdin), 0644); err != nil {
		return nil, fmt.Errorf("failed to write input.txt: %w", err)
	}

	args := []string{
		fmt.Sprintf("--box-id=%d", box.ID),
		fmt.Sprintf("--meta=%s", box.MetadataPath),
		"--cg",
		"-s",
		"-E", "HOME=/tmp",
	}
	for _, e := range env {
		args = append(args, "-E", e)
	}

	ct := ceilSeconds(limits.CPUTimeMS)
	wt := ceilSeconds(limits.WallTimeMS)
	if wt <= ct {
		wt = ct + 1
	}
	args = append(args,
		fmt.Sprintf("--time=%d", ct),
		fmt.Sprintf("--wall-time=%d", wt),
		"--extra-time=0",
		fmt.Sprintf("--cg-mem=%d", limits.MemoryLimitKB),
		fmt.Sprintf("--fsize=%d", limits.FileSizeKB),
		fmt.Sprintf("--stack=%d", limits.StackKB),
		fmt.Sprintf("--processes=%d", maxInt(limits.MaxProcesses, 1)),
		"--stdin=input.txt",
		"--stdout=out.txt",
		"--stderr=err.txt",
	)

	if !d.disableNet {
		args = append(args, "--share-net")
	}

	args = append(args, "--run", "--")
	args = append(args, argv...)

	// Supervisory wall-clock timeout: isolate itself enforces --wall-time,
	// but a hung isolate invocation (e.g. the kernel cgroup teardown
	// stalling) must not block the caller forever.
	superCtx, cancel := context.WithTimeout(ctx, time.Duration(wt+5)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(superCtx, d.isolatePath, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	meta, metaErr := d.parseMeta(box)
	if metaErr != nil {
		d.logger.WithError(metaErr).WithField("box_id", box.ID).Warn("failed to parse meta file")
	}

	if superCtx.Err() == context.DeadlineExceeded {
		meta.Status = types.MetaStatusTO
	} else if runErr != nil && meta.Status == types.MetaStatusOK {
		// isolate itself failed to launch the child (e.g. box missing);
		// surface as isolate-internal rather than a clean run.
		meta.Status = types.MetaStatusXX
	}

	stdout, _ := os.ReadFile(filepath.Join(box.Dir, "out.txt"))
	stderr, _ := os.ReadFile(filepath.Join(box.Dir, "err.txt"))
	if len(stderr) == 0 {
		stderr = stderrBuf.Bytes()
	}

	return &RunResult{
		Stdout: string(stdout),
		Stderr: string(stderr),
		Meta:   meta,
	}, nil
}

// Cleanup tears the box down. Best-effort: cleanup failures are logged,
// never propagated, since the caller has already produced its verdict.
func (d *Driver) Cleanup(ctx context.Context, box *types.Box) {
	if err := d.cleanupQuiet(ctx, box.ID); err != nil {
		d.logger.WithError(err).WithField("box_id", box.ID).Error("isolate cleanup failed")
	}
	_ = os.Remove(box.MetadataPath)
}

func (d *Driver) cleanupQuiet(ctx context.Context, id int) error {
	cmd := exec.CommandContext(ctx, d.isolatePath, "--cleanup", "--cg", fmt.Sprintf("--box-id=%d", id))
	return cmd.Run()
}

func (d *Driver) parseMeta(box *types.Box) (types.Meta, error) {
	content, err := os.ReadFile(box.MetadataPath)
	if err != nil {
		return types.Meta{}, err
	}

	var meta types.Meta
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key, value := kv[0], kv[1]
		switch key {
		case "time":
			meta.CPUTime, _ = strconv.ParseFloat(value, 64)
		case "time-wall":
			meta.WallTime, _ = strconv.ParseFloat(value, 64)
		case "max-rss":
			meta.MemoryKB, _ = strconv.ParseInt(value, 10, 64)
		case "exitcode":
			meta.ExitCode, _ = strconv.Atoi(value)
		case "status":
			meta.Status = types.MetaStatus(value)
		}
	}
	return meta, nil
}

func ceilSeconds(ms int) int {
	if ms <= 0 {
		return 0
	}
	s := ms / 1000
	if ms%1000 != 0 {
		s++
	}
	if s == 0 {
		s = 1
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
