package main

import (
	"fmt"
	"os"

	"github.com/GriffinCanCode/AgentOS/fileshuttle/cmd/fileshuttle/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
