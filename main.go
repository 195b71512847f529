// ABOUTME: Entry point for the dealflow CLI, TUI, REST server and MCP server
// ABOUTME: Hands os.Args to the cobra command tree
package main

import (
	"os"

	"github.com/harperreed/dealflow/cli"
)

const version = "0.1.0"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
