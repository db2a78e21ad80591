package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveBinary returns the path used to execute exe for a family whose
// programs live in dir. Relative names are always resolved against dir
// rather than PATH.
func ResolveBinary(dir, exe string) string {
	if filepath.IsAbs(exe) {
		return exe
	}

	p := filepath.Join(dir, exe)
	if !strings.ContainsRune(p, filepath.Separator) {
		p = "." + string(filepath.Separator) + p
	}

	return p
}

// BuildCommand returns the compiler invocation for a target: gcc for
// sequential programs, mpicc for launcher-driven ones, with -fopenmp
// wherever a thread count is used.
func BuildCommand(t Target) (string, []string) {
	compiler := "gcc"
	if t.Kind == KindDistributed || t.Kind == KindHybrid {
		compiler = "mpicc"
	}

	var args []string
	if t.Kind == KindShared || t.Kind == KindHybrid {
		args = append(args, "-fopenmp")
	}

	args = append(args, "-O2", "-o", t.Executable, t.Source)

	return compiler, args
}

// Build compiles a target from its source file inside dir. Targets
// without a source are assumed to be prebuilt.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	dir string,
	t Target,
) error {
	if t.Source == "" {
		return nil
	}

	compiler, args := BuildCommand(t)

	logger.InfoContext(ctx, "building target",
		slog.String("target", t.Label()),
		slog.String("compiler", compiler),
		slog.String("source", t.Source),
	)

	cmd := exec.CommandContext(ctx, compiler, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build %s: %w", t.Label(), err)
	}

	binPath := ResolveBinary(dir, t.Executable)
	if _, err := os.Stat(binPath); err != nil {
		return fmt.Errorf(
			"build %s: binary not found at %s", t.Label(), binPath,
		)
	}

	logger.InfoContext(ctx, "target built",
		slog.String("target", t.Label()),
		slog.String("binary", binPath),
	)

	return nil
}
