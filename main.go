// The main package for the jobcontrol executable.
package main

import (
	"github.com/JakeFAU/jobcontrol/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
