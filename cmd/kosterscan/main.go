package main

import (
	"os"

	"github.com/kosterlab/kosterscan/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
