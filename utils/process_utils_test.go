package utils

import (
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandWithOutputAndError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	t.Parallel()

	cmd := exec.Command("sh", "-c", "echo out; echo err 1>&2")
	stdout, stderr, combined, err := RunCommandWithOutputAndError(cmd)
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(stdout))
	assert.Equal(t, "err\n", string(stderr))
	assert.Contains(t, string(combined), "out\n")
	assert.Contains(t, string(combined), "err\n")

	cmd = exec.Command("sh", "-c", "echo 'Error: Source not found' 1>&2; exit 3")
	_, _, combined, err = RunCommandWithOutputAndError(cmd)
	require.Error(t, err)
	failure := CommandFailure(cmd, combined, err)
	assert.Contains(t, failure.Error(), "error while executing 'sh -c")
	assert.Contains(t, failure.Error(), "Error: Source not found")
	assert.Contains(t, failure.Error(), "exit status 3")
}
