package main

import (
	"os"

	"github.com/dkeye/Interview/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("interview failed")
		os.Exit(1)
	}
}
