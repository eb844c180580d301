package main

import (
	"os"

	"github.com/bianoble/linkset/cmd/linkset/cmd"
	"github.com/bianoble/linkset/internal/errext"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(int(errext.Code(err)))
	}
}
