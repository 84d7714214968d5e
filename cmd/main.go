package main

import (
	"log/slog"
	"os"

	"quiz-tournament-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
