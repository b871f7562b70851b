package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/anonto42/freelink/backend/internal/bootstrap"
	"github.com/anonto42/freelink/backend/internal/cli"
	"github.com/anonto42/freelink/backend/pkg/config"
)

func main() {
	open := func(ctx context.Context) (*bootstrap.Container, error) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		return bootstrap.New(ctx, config.Load(), logger)
	}
	if err := cli.NewRootCommand(open).Execute(); err != nil {
		os.Exit(1)
	}
}
