package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Launch describes how distributed targets are started and how thread
// counts are passed to shared-memory targets.
type Launch struct {
	Launcher    string
	ProcessFlag string
	ThreadEnv   string
}

// DefaultLaunch uses mpirun and OpenMP's thread variable.
func DefaultLaunch() Launch {
	return Launch{
		Launcher:    "mpirun",
		ProcessFlag: "-n",
		ThreadEnv:   "OMP_NUM_THREADS",
	}
}

// CommandConfig holds the resolved command, arguments, and environment
// overrides needed to run a target.
type CommandConfig struct {
	Binary string
	Args   []string
	Env    []string // KEY=VALUE overrides applied to a copy of the environment
}

// WrapCommand returns the exec configuration for a target. Distributed
// and hybrid targets run behind the launcher; shared and hybrid targets
// get the thread variable.
func WrapCommand(t Target, launch Launch) CommandConfig {
	var cfg CommandConfig

	switch t.Kind {
	case KindDistributed, KindHybrid:
		cfg.Binary = launch.Launcher
		cfg.Args = append(cfg.Args,
			launch.ProcessFlag, strconv.Itoa(t.Processes), t.Executable)
	default:
		cfg.Binary = t.Executable
	}

	cfg.Args = append(cfg.Args, t.Args...)

	if t.Kind == KindShared || t.Kind == KindHybrid {
		cfg.Env = []string{launch.ThreadEnv + "=" + strconv.Itoa(t.Threads)}
	}

	return cfg
}

// SpawnError reports that a target's executable or launcher could not be
// started.
type SpawnError struct {
	Label string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Label, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// RawOutput is the captured standard output of one target invocation.
// ExitCode and Wall are informational; they never affect parsing.
type RawOutput struct {
	Label    string
	Stdout   string
	ExitCode int
	Wall     time.Duration
}

// Runner launches a single target.
type Runner struct {
	Target  Target
	Command CommandConfig
	Stderr  io.Writer
	Logger  *slog.Logger
}

// NewRunner creates a Runner for the target. The child's standard error
// is forwarded to the harness's own standard error.
func NewRunner(t Target, launch Launch, logger *slog.Logger) *Runner {
	return &Runner{
		Target:  t,
		Command: WrapCommand(t, launch),
		Stderr:  os.Stderr,
		Logger:  logger.With(slog.String("target", t.Label())),
	}
}

// Run feeds the input file to the target on stdin and blocks until the
// process exits, returning everything it wrote to stdout.
func (r *Runner) Run(ctx context.Context, inputPath string) (*RawOutput, error) {
	label := r.Target.Label()

	inputFile, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", inputPath, err)
	}
	defer inputFile.Close()

	cmd := exec.CommandContext(ctx, r.Command.Binary, r.Command.Args...)

	if len(r.Command.Env) > 0 {
		cmd.Env = overrideEnv(os.Environ(), r.Command.Env)
	}

	var stdout bytes.Buffer
	cmd.Stdin = inputFile
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr

	r.Logger.Info("starting target",
		slog.String("binary", r.Command.Binary),
		slog.Any("args", r.Command.Args),
		slog.Any("env", r.Command.Env),
	)

	// Only the launcher is spawned for these kinds, so a missing program
	// would otherwise surface as a launcher exit status.
	if r.Target.Kind == KindDistributed || r.Target.Kind == KindHybrid {
		if err := checkExecutable(r.Target.Executable); err != nil {
			return nil, &SpawnError{Label: label, Err: err}
		}
	}

	wallStart := time.Now()

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Label: label, Err: err}
	}

	out := &RawOutput{Label: label}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("wait for %s: %w", label, err)
		}

		out.ExitCode = exitErr.ExitCode()
		r.Logger.Warn("target exited with non-zero status",
			slog.Int("exit_code", out.ExitCode),
		)
	}

	out.Wall = time.Since(wallStart)
	out.Stdout = stdout.String()

	r.Logger.Info("target finished",
		slog.Duration("wall_time", out.Wall),
		slog.Int("stdout_bytes", len(out.Stdout)),
	)

	return out, nil
}

// checkExecutable resolves path the way exec would: bare names through
// PATH, anything with a separator relative to the working directory.
func checkExecutable(path string) error {
	if !strings.ContainsRune(path, filepath.Separator) && !strings.ContainsRune(path, '/') {
		_, err := exec.LookPath(path)

		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	return nil
}

// overrideEnv returns a copy of base with every KEY=VALUE in overrides
// replacing any existing entry for KEY.
func overrideEnv(base, overrides []string) []string {
	keys := make(map[string]struct{}, len(overrides))
	for _, kv := range overrides {
		k, _, _ := strings.Cut(kv, "=")
		keys[k] = struct{}{}
	}

	env := make([]string, 0, len(base)+len(overrides))

	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := keys[k]; ok {
			continue
		}
		env = append(env, kv)
	}

	return append(env, overrides...)
}
