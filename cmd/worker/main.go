package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/mrniikke/fitness-challange/internal/pkg/logger" // Still needed for initial error logging
	"github.com/mrniikke/fitness-challange/internal/worker"
)

func main() {
	configPath := flag.String("config", filepath.Join("configs", "config.yaml"), "path to the YAML configuration file")
	flag.Parse()

	w, err := worker.NewWorker(*configPath)
	if err != nil {
		// Error details are logged within the bootstrap functions
		logger.Error().Err(err).Msg("Failed to initialize worker")
		os.Exit(1)
	}

	// Blocks until a shutdown signal or a component failure
	if err := w.Run(); err != nil {
		logger.Error().Err(err).Msg("Worker execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Worker finished gracefully.")
}
