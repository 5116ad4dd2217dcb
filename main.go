// The main package for the tuchtcrawler executable.
package main

import (
	"github.com/vgassen/tuchtrecht-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
