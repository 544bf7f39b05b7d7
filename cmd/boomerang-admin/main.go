package main

import (
	"fmt"
	"os"

	"github.com/dandantas/boomerang/cmd/boomerang-admin/commands"
)

func main() {
	if err := commands.NewRootCmd(commands.OpenConfiguredStore).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
