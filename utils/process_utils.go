package utils

import (
	"bytes"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// RunCommandWithOutputAndError runs a given exec.Cmd and returns the stdout, stderr, and
// combined output as bytes, or an error if one occurred.
func RunCommandWithOutputAndError(command *exec.Cmd) ([]byte, []byte, []byte, error) {
	// Create our buffers to capture output and errors.
	var bStdout, bStderr, bCombined bytes.Buffer

	// Create a synchronized writer over bCombined to avoid data race.
	var combinedWriter io.Writer = &synchronizedWriter{writer: &bCombined}

	// Create multi writers to capture output into individual and combined buffers
	stdoutMulti := io.MultiWriter(&bStdout, combinedWriter)
	stderrMulti := io.MultiWriter(&bStderr, combinedWriter)

	// Set our writers
	command.Stdout = stdoutMulti
	command.Stderr = stderrMulti

	// Execute the command
	err := command.Run()

	// Return our results
	return bStdout.Bytes(), bStderr.Bytes(), bCombined.Bytes(), err
}

// CommandFailure wraps the error of a failed command with the command's combined output, so compiler diagnostics are
// reported alongside the exit status.
func CommandFailure(command *exec.Cmd, combinedOutput []byte, err error) error {
	output := strings.TrimSpace(string(combinedOutput))
	if output == "" {
		return errors.Wrapf(err, "error while executing '%s'", strings.Join(command.Args, " "))
	}
	return errors.Wrapf(err, "error while executing '%s':\n%s\n", strings.Join(command.Args, " "), output)
}

// synchronizedWriter wraps an io.Writer to avoid a data race when writing.
type synchronizedWriter struct {
	writer io.Writer
	mutex  sync.Mutex
}

func (s *synchronizedWriter) Write(p []byte) (n int, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writer.Write(p)
}
