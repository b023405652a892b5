package main

import (
	"os"

	"github.com/yigit/schoolrecords/internal/pkg/logger"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
