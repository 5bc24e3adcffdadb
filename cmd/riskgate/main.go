package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/riskgate/cmd/riskgate/cmd"
)

func init() {
	// A .env at the project root is optional.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
