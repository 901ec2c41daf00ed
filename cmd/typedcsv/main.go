// Command typedcsv checks CSV files against the registered schemas from the
// command line.
//
//	typedcsv schemas
//	typedcsv check sfdc_customers accounts.csv.gz
//	typedcsv check --separator ';' --json anrok_transactions https://example.com/export.csv
package main

import (
	"errors"
	"fmt"
	"os"

	_ "github.com/JonMunkholm/typedcsv/internal/schema/records" // Register all schemas
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errInvalidRows) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
