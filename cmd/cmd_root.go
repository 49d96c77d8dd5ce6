// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "nearby",
	Short: "find places around you",
	Long: `
nearby looks up points of interest around a position, optionally restricted
to a set of categories, from Google Places, a local DuckDB store or an
Elasticsearch index.
`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadEnv(rootOptions.EnvFile)
	},
}

var Version = "dev"

// loadEnv loads path into the environment. A missing file is not an error;
// variables already set win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("loading %s: %w", path, err)
	}

	log.Printf("Loaded environment from %s", path)

	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOptions.EnvFile, "env-file", ".env", "file with environment variables")
	flags.StringVar(&rootOptions.Source, "source", sourceGoogle, "places data source: google, store or elastic")
	flags.StringVar(&rootOptions.DBPath, "db", "nearby.duckdb", "DuckDB file used by the store source")
	flags.StringVar(&rootOptions.ElasticURL, "elastic-url", "http://localhost:9200", "Elasticsearch URL used by the elastic source")
	flags.StringVar(&rootOptions.ElasticIndex, "elastic-index", "places", "Elasticsearch index used by the elastic source")
	flags.BoolVar(&rootOptions.Trace, "trace", false, "dump HTTP transactions with the places service to stderr")
}

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
