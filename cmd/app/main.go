package main

import (
	"os"

	"reliefbridge/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
