package main

import (
	"os"

	"github.com/pengelbrecht/tally/cmd/tally/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
