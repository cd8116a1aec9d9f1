package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		script   string
		wantCmd  string
		wantArgs []string
	}{
		{"server.py", "python", []string{"server.py"}},
		{"/srv/Math.PY", "python", []string{"/srv/Math.PY"}},
		{"server.js", "node", []string{"server.js"}},
		{"server.mjs", "node", []string{"server.mjs"}},
		{"./mathserver", "./mathserver", nil},
	}
	for _, tc := range tests {
		cmd, args := ResolveCommand(tc.script)
		assert.Equal(t, tc.wantCmd, cmd, tc.script)
		assert.Equal(t, tc.wantArgs, args, tc.script)
	}
}
