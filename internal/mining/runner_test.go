package mining

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/secuflow/secuflow-go/internal/config"
)

func newRunner(cfg config.MiningConfig) *Runner {
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}
	return NewRunner(cfg, logrus.New())
}

func TestArgvDirectJVM(t *testing.T) {
	r := newRunner(config.MiningConfig{
		JavaPath: "java",
		JarPath:  "/app/tnm-cli.jar",
	})
	argv := r.argv(CmdAssignmentMatrix, []string{"--repository", "/repo/.git"}, []string{"main"})
	assert.Equal(t, []string{
		"java", "-jar", "/app/tnm-cli.jar",
		"AssignmentMatrixMiner", "--repository", "/repo/.git", "main",
	}, argv)
}

func TestArgvDockerExec(t *testing.T) {
	r := newRunner(config.MiningConfig{
		JavaPath:      "java",
		JarPath:       "/app/tnm-cli.jar",
		DockerMode:    true,
		ContainerName: "tnm-worker",
	})
	argv := r.argv(CmdFileDependencyMatrix, nil, nil)
	assert.Equal(t, []string{
		"docker", "exec", "tnm-worker", "java", "-jar", "/app/tnm-cli.jar",
		"FileDependencyMatrixMiner",
	}, argv)
}

func TestArgvCustomPrefixWinsOverDocker(t *testing.T) {
	r := newRunner(config.MiningConfig{
		JavaPath:      "java",
		JarPath:       "/app/tnm-cli.jar",
		DockerMode:    true,
		ContainerName: "tnm-worker",
		CommandPrefix: "/opt/tnm/run.sh --quiet",
	})
	argv := r.argv(CmdFilesOwnership, []string{"--repository", "/repo/.git"}, nil)
	assert.Equal(t, []string{
		"/opt/tnm/run.sh", "--quiet",
		"FilesOwnershipMiner", "--repository", "/repo/.git",
	}, argv)
}

func TestRunStreamsLines(t *testing.T) {
	r := newRunner(config.MiningConfig{
		CommandPrefix: "/bin/sh -c",
		StreamOutput:  true,
	})
	res, err := r.Run(context.Background(), "printf 'one\\ntwo\\n'", nil, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", res.Stdout)
}

func TestRunStreamingDrainsOversizedLine(t *testing.T) {
	// A single line larger than the scanner buffer must not leave the child
	// blocked on a full pipe; the runner drains the remainder and waits.
	r := newRunner(config.MiningConfig{
		CommandPrefix: "/bin/sh -c",
		StreamOutput:  true,
		Timeout:       10 * time.Second,
	})
	res, err := r.Run(context.Background(), "head -c 2097152 /dev/zero | tr '\\0' a", nil, nil, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Stdout)
}

func TestToolErrorMessages(t *testing.T) {
	exit := &ToolError{Command: "AssignmentMatrixMiner", ExitCode: 2, Stderr: "boom"}
	assert.Contains(t, exit.Error(), "code 2")
	assert.Contains(t, exit.Error(), "boom")

	timeout := &ToolError{Command: "AssignmentMatrixMiner", Timeout: true}
	assert.Contains(t, timeout.Error(), "timed out")
}
