package main

import (
	"context"
	"os"

	"github.com/dshills/llmflow/pkg/cli"
)

func main() {
	// cobra prints the error itself
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
