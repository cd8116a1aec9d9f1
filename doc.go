// Package mcpchat answers natural-language queries with a language model
// that can call the tools of a Model Context Protocol server running as a
// subprocess. The module is organized as subpackages:
//
//   - `mcp` owns the stdio session with the tool server and adapts its
//     tool catalog for inference
//   - `llm` holds the provider-neutral inference client, errors and retries
//   - `agent/core` runs the inference / tool-execution loop
//   - `lifecycle` releases acquired resources in reverse order
//   - `memory` persists transcripts
//
// Importers typically depend on the subpackages directly, for example:
//
//	import (
//	  "github.com/KamdynS/mcpchat/mcp"
//	  "github.com/KamdynS/mcpchat/agent/core"
//	)
//
// The `cmd/mcpchat` command is the interactive client and `cmd/mathserver`
// is a small arithmetic tool server to run it against.
package mcpchat
