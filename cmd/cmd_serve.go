// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"log"

	"github.com/jcodagnone/nearby/dispatch"
	"github.com/jcodagnone/nearby/presenter"
	"github.com/jcodagnone/nearby/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	positionOptions
	Addr string
}

var serveOpts = &serveOptions{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve a search session over HTTP",
	Long: `
Runs a single search session behind a JSON API. The permission prompt is
answered with POST /api/permission/response and results are read from
GET /api/places.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a := newApp(rootOptions)
		defer a.Close()

		repo, err := a.repository(ctx)
		if err != nil {
			return err
		}

		loop := dispatch.New()
		loop.Start(ctx)

		defer loop.Stop()

		location := presenter.FixedLocation{Point: serveOpts.position(cmd)}
		srv := server.NewServer(ctx, loop, repo, location, serveOpts.Radius, presenter.DefaultCategories)

		log.Printf("Serving %s places on %s", rootOptions.Source, serveOpts.Addr)

		return srv.Run(serveOpts.Addr)
	},
}

func init() {
	serveOpts.register(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", "localhost:8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}
