package main

import (
	"github.com/andrescamacho/lastmile-go/internal/adapters/cli"
)

func main() {
	cli.Execute()
}
