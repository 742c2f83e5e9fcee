// Command mcphook runs the MCP hook-chain proxy.
package main

import "github.com/mcphook/proxy/cmd/mcphook/cmd"

func main() {
	cmd.Execute()
}
