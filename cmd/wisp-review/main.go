package main

import (
	"fmt"
	"os"

	"github.com/wispbit/wisp-review/cmd/wisp-review/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
