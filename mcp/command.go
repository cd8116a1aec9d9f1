package mcp

import (
	"path/filepath"
	"strings"
)

// ResolveCommand picks the interpreter for a server script from its
// extension: ".py" runs under python, ".js" under node, and anything else is
// executed directly.
func ResolveCommand(script string) (string, []string) {
	switch strings.ToLower(filepath.Ext(script)) {
	case ".py":
		return "python", []string{script}
	case ".js", ".mjs":
		return "node", []string{script}
	default:
		return script, nil
	}
}
