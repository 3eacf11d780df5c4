package main

import "github.com/teemow/inboxtriage/cmd"

// version is stamped by the release build with -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
