// Command passthrough-proxy runs the MCP hook-chain passthrough proxy: one
// process acting as an MCP server to a source client and an MCP client to a
// target server, running every message through a chain of hooks.
package main

import "github.com/passline/mcp-gate/cmd/passthrough-proxy/cmd"

func main() {
	cmd.Execute()
}
