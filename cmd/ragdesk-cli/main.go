package main

import (
	"context"
	"os"

	"ragdesk/cmd/ragdesk-cli/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
