// Command cratectl inspects and maintains a Crate library on disk without
// running the server.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
