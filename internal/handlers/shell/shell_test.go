package shell_test

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronmachine/internal/handlers/shell"
)

func TestValidate(t *testing.T) {
	h := shell.Shell{}
	assert.NoError(t, h.Validate(json.RawMessage(`{"command":"true"}`)))
	assert.EqualError(t, h.Validate(json.RawMessage(`{}`)), "command is required")
	assert.Error(t, h.Validate(json.RawMessage(`[`)))
}

func TestHandle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	h := shell.Shell{}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, json.RawMessage(`{"command":"sh","args":["-c","test \"$GREETING\" = hi"],"env":{"GREETING":"hi"}}`)))

	err := h.Handle(ctx, json.RawMessage(`{"command":"sh","args":["-c","echo oops; exit 3"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out=oops")
}
