package mining

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/secuflow/secuflow-go/internal/config"
)

// ToolError is a classified mining-tool failure carrying the exit code and
// captured stderr. Timeout is its own flavor and is never retried.
type ToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Timeout  bool
}

func (e *ToolError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s timed out", e.Command)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// Result captures one completed tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner invokes the external mining tool. Three backends share one
// invocation path: a custom command prefix, docker exec into a long-lived
// container, or a direct JVM launch, in that precedence order.
type Runner struct {
	cfg config.MiningConfig
	log *logrus.Logger
}

func NewRunner(cfg config.MiningConfig, log *logrus.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// argv builds the full command line for one miner invocation. The layout is
// always <backend prefix> <command> <options...> <args...>.
func (r *Runner) argv(command string, options, args []string) []string {
	var cmd []string
	switch {
	case r.cfg.CommandPrefix != "":
		cmd = strings.Fields(r.cfg.CommandPrefix)
	case r.cfg.DockerMode:
		cmd = []string{"docker", "exec", r.cfg.ContainerName, r.cfg.JavaPath, "-jar", r.cfg.JarPath}
	default:
		cmd = []string{r.cfg.JavaPath, "-jar", r.cfg.JarPath}
	}
	cmd = append(cmd, command)
	cmd = append(cmd, options...)
	cmd = append(cmd, args...)
	return cmd
}

// Run executes one miner command synchronously under the configured timeout.
// A non-zero exit or a deadline hit returns a *ToolError; the Result is
// returned alongside so callers can inspect partial output.
func (r *Runner) Run(ctx context.Context, command string, options, args []string, workDir string) (*Result, error) {
	argv := r.argv(command, options, args)
	log := r.log.WithFields(logrus.Fields{
		"command": command,
		"argv":    strings.Join(argv, " "),
	})
	log.Info("running miner")

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if workDir != "" {
		cmd.Dir = workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr

	if r.cfg.StreamOutput {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", command, err)
		}
		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			stdout.WriteString(line)
			stdout.WriteByte('\n')
			log.WithField("line", line).Debug("miner output")
		}
		if scanErr := scanner.Err(); scanErr != nil {
			// Keep draining so the child never blocks on a full pipe.
			log.WithError(scanErr).Warn("stopped line-streaming miner output, draining remainder")
			if _, copyErr := io.Copy(&stdout, pipe); copyErr != nil {
				log.WithError(copyErr).Warn("failed to drain miner output")
			}
		}
		err = cmd.Wait()
		return r.finish(ctx, command, err, &stdout, &stderr)
	}

	cmd.Stdout = &stdout
	err := cmd.Run()
	return r.finish(ctx, command, err, &stdout, &stderr)
}

func (r *Runner) finish(ctx context.Context, command string, err error, stdout, stderr *bytes.Buffer) (*Result, error) {
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, &ToolError{Command: command, ExitCode: -1, Stderr: res.Stderr, Timeout: true}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ToolError{Command: command, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, fmt.Errorf("failed to run %s: %w", command, err)
}
