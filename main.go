package main

import (
	"os"

	"git.handmade.network/hmn/sassproc/src/cli"
	_ "git.handmade.network/hmn/sassproc/src/sassproc/cmd"
)

func main() {
	if err := cli.RootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
