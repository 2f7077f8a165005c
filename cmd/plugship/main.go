// Command plugship patches, packages, signs and publishes IDE plugins
// described by a plugship descriptor.
package main

import (
	"os"
)

// Set via -ldflags at release time
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(newApp(os.Stdout, os.Stderr).execute(os.Args[1:]))
}
