// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jcodagnone/nearby/places"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

const seedBatchSize = 500

type placeSaver interface {
	SavePlaces(ctx context.Context, ps []*places.Place) error
}

var seedCmd = &cobra.Command{
	Use:   "seed <file|s3://bucket/key>",
	Short: "load places from a GeoJSON file into the store or the index",
	Long: `
Reads a GeoJSON FeatureCollection of points and saves them into the DuckDB
store (--source store) or the Elasticsearch index (--source elastic).

s3:// locations are fetched with the MINIO_ENDPOINT, MINIO_ACCESS_KEY,
MINIO_SECRET_KEY and MINIO_USE_SSL environment variables.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a := newApp(rootOptions)
		defer a.Close()

		saver, err := seedTarget(ctx, a)
		if err != nil {
			return err
		}

		r, err := places.OpenSeed(ctx, args[0], places.ObjectStoreConfigFromEnv)
		if err != nil {
			return err
		}
		defer r.Close()

		ps, err := places.ReadGeoJSON(r)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		return seedPlaces(ctx, saver, ps)
	},
}

func seedTarget(ctx context.Context, a *app) (placeSaver, error) {
	switch rootOptions.Source {
	case sourceStore:
		return a.openStore(ctx)
	case sourceElastic:
		c, err := a.openElastic()
		if err != nil {
			return nil, err
		}

		if err := c.EnsureIndex(ctx); err != nil {
			return nil, err
		}

		return c, nil
	default:
		return nil, fmt.Errorf("source %q cannot be seeded, use store or elastic", rootOptions.Source)
	}
}

func seedPlaces(ctx context.Context, saver placeSaver, ps []*places.Place) error {
	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(ps),
			progressbar.OptionSetDescription("Seeding places"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var errs []error

	saved := 0

	for start := 0; start < len(ps); start += seedBatchSize {
		end := min(start+seedBatchSize, len(ps))

		if err := saver.SavePlaces(ctx, ps[start:end]); err != nil {
			errs = append(errs, fmt.Errorf("saving places %d-%d: %w", start, end-1, err))
		} else {
			saved += end - start
		}

		if bar == nil {
			log.Printf("Seeded %d/%d places", end, len(ps))
		} else if err := bar.Add(end - start); err != nil {
			errs = append(errs, fmt.Errorf("updating progress bar: %w", err))
		}
	}

	log.Printf("Saved %d places", saved)

	return errors.Join(errs...)
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
