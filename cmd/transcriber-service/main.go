package main

import (
	"log/slog"
	"os"

	"github.com/cuongbtq/drive-transcriber/shared/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// The configured logger may not exist yet
		logger.NewDefault().Error("Command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
