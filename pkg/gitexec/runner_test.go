package gitexec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitError_WithStderr(t *testing.T) {
	underlying := errors.New("exit status 128")
	err := &ExitError{
		Command: "git checkout dev/1.2.3",
		Dir:     "/tmp/code/ubelt",
		Stderr:  "error: pathspec 'dev/1.2.3' did not match any file(s)",
		Err:     underlying,
	}

	assert.Contains(t, err.Error(), "git checkout dev/1.2.3 failed")
	assert.Contains(t, err.Error(), "pathspec")
	assert.Equal(t, underlying, errors.Unwrap(err))
}

func TestExitError_WithoutStderr(t *testing.T) {
	err := &ExitError{
		Command: "git pull",
		Err:     errors.New("exit status 1"),
	}

	assert.Equal(t, "git pull failed: exit status 1", err.Error())
}
