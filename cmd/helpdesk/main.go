package main

import (
	"context"
	"os"

	"github.com/spec-kit/helpdesk-client/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
