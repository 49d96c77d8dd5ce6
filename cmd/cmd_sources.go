// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sources = []struct {
	name        string
	description string
}{
	{sourceGoogle, "Google Places nearby search (GOOGLE_MAPS_API_KEY or ADC)"},
	{sourceStore, "local DuckDB file with H3 indexed places (--db)"},
	{sourceElastic, "Elasticsearch geo index (--elastic-url, --elastic-index)"},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "list the places sources",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		for _, s := range sources {
			marker := " "
			if s.name == rootOptions.Source {
				marker = "*"
			}

			fmt.Fprintf(out, "%s %-8s %s\n", marker, s.name, s.description)
		}
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
