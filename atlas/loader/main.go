package main

import (
	"fmt"
	"io"
	"os"

	_ "ariga.io/atlas-go-sdk/recordriver" // import used by the CLI tool
	"ariga.io/atlas-provider-gorm/gormschema"

	"crossbot/src/database"
)

// Prints the DDL of every crossbot table for `atlas migrate diff`.
func main() {
	statements, err := gormschema.New("postgres").Load(database.DbTables...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load GORM schema: %v\n", err)
		os.Exit(1)
	}

	// backtest_runs ids default to gen_random_uuid()
	fmt.Println(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`)

	io.WriteString(os.Stdout, statements) //nolint:errcheck
}
