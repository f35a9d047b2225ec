package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/qrbind/internal/server/cli"
)

func main() {
	cmd := cli.NewRootCommand(os.Args[1:])
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
