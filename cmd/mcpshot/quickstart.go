package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuickstartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "Show examples and usage instructions",
		Run: func(_ *cobra.Command, _ []string) {
			printQuickstart()
		},
	}
}

func printQuickstart() {
	fmt.Println(`Quickstart Guide for mcpshot

1. Default server
   Runs "node mobile-mcp/lib/index.js --stdio" from the current directory
   and writes the first device's screenshot to screenshot.png.

   mcpshot run

2. Custom server command
   Everything after -- is the server command.

   mcpshot run --output=device.png -- ./bin/device-server --stdio

3. Config file
   Keys left out keep their defaults; flags override the file.

   mcpshot config > mcpshot.toml
   mcpshot run --config=mcpshot.toml --response-timeout=1m

4. Troubleshooting
   --debug logs every JSON-RPC line; --stderr-tty gives the server a
   terminal for its diagnostics.

   mcpshot run --debug --stderr-tty`)
}
