package main

import (
	"os"

	"ciphercomms/cmd/ciphercomms/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
