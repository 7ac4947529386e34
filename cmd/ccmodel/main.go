package main

import (
	"os"

	"github.com/xtalforge/ccmodel/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Execute())
}
