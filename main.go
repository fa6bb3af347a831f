package main

import (
	"context"
	"os"

	"github.com/conneroisu/mdbook-dice/cmd"
	"github.com/conneroisu/mdbook-dice/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		handler := errors.NewErrorHandler(cmd.Logger())
		os.Exit(handler.Handle(context.Background(), err))
	}
}
