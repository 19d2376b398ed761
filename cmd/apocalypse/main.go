package main

import (
	"context"
	"fmt"
	"os"

	"apocalypse.sim/internal/cli"
)

func main() {
	if err := cli.New().Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "apocalypse: %v\n", err)
		os.Exit(1)
	}
}
