// Command pdoflow is the CLI boundary of spec.md §6: a thin argv
// translation layer over the programmatic pdoflow/sql API. It carries
// no core dispatch logic of its own.
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd := BuildCLI()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pdoflow:", err)
		os.Exit(exitCode(err))
	}
}
