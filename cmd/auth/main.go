package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/aussiebroadwan/medmigrate/internal/auth/app"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; the environment always wins.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
