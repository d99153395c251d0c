package main

import (
	"fmt"
	"os"
	"os/exec"

	"crossbot/src/config"
	"crossbot/src/database"
)

// This script runs atlas migrations against the database named in the crossbot config.
// MIGRATIONS_DIR overrides the default migrations directory.

func main() {
	appConfig, err := config.Load()
	if err != nil {
		fmt.Printf("❌ failed to load config: %v", err)
		os.Exit(1)
	}
	if !appConfig.DatabaseConfig.IsConfigured() {
		fmt.Println("❌ no postgres section in config")
		os.Exit(1)
	}

	uri := database.MakeConnectionString(&appConfig.DatabaseConfig)

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "file://atlas/migrations"
	}

	fmt.Printf("Executing migrations from %s against db at: %s@%s\n",
		migrationsDir, appConfig.DatabaseConfig.User, appConfig.DatabaseConfig.Host)

	cmd := exec.Command("atlas", "migrate", "apply",
		"--url", uri,
		"--dir", migrationsDir,
	)
	output, err := cmd.CombinedOutput()

	fmt.Print(string(output))

	if err != nil {
		fmt.Printf("❌ failed to run Atlas migrations: %v", err)
		os.Exit(1)
	}
}
