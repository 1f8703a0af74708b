// Command toolflow runs multi-step tool workflows from the command line and
// serves them to MCP and HTTP clients.
package main

import "toolflow/internal/cli"

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
