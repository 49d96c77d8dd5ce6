// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
	"github.com/spf13/cobra"
)

const (
	sourceGoogle  = "google"
	sourceStore   = "store"
	sourceElastic = "elastic"
)

type options struct {
	EnvFile      string
	Source       string
	DBPath       string
	ElasticURL   string
	ElasticIndex string
	Trace        bool
}

var rootOptions = &options{}

// app is the composition root shared by the commands. It owns the places
// repository cache and whatever the selected client needs closing.
type app struct {
	opts    *options
	repos   places.RepositoryCache
	closers []io.Closer
}

func newApp(opts *options) *app {
	return &app{opts: opts}
}

func (a *app) Close() error {
	var err error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}

func (a *app) openStore(ctx context.Context) (*places.Store, error) {
	db, err := sql.Open("duckdb", a.opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a.closers = append(a.closers, db)

	store := places.NewStore(db)
	if err := store.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return store, nil
}

func (a *app) openElastic() (*places.ElasticClient, error) {
	return places.NewElasticClient(a.opts.ElasticURL, a.opts.ElasticIndex)
}

func (a *app) client(ctx context.Context) (places.Client, error) {
	switch a.opts.Source {
	case sourceGoogle:
		key, err := places.ResolveGoogleAPIKey(ctx)
		if err != nil {
			return nil, err
		}

		opts := []places.GoogleOption{}
		if a.opts.Trace {
			opts = append(opts, places.WithTrace(os.Stderr))
		}

		return places.NewGoogleClient(key, opts...)
	case sourceStore:
		return a.openStore(ctx)
	case sourceElastic:
		return a.openElastic()
	default:
		return nil, fmt.Errorf("unknown source %q", a.opts.Source)
	}
}

// repository returns the process wide repository, building the client the
// first time.
func (a *app) repository(ctx context.Context) (places.Repository, error) {
	client, err := a.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", a.opts.Source, err)
	}

	return a.repos.GetRepository(client)
}

type positionOptions struct {
	Lat    float64
	Lng    float64
	Radius float64
}

func (o *positionOptions) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.Lat, "lat", 0, "latitude of the current position")
	cmd.Flags().Float64Var(&o.Lng, "lng", 0, "longitude of the current position")
	cmd.Flags().Float64Var(&o.Radius, "radius", places.DefaultRadius, "search radius in meters")
}

// position returns the configured position, nil when neither --lat nor
// --lng was given.
func (o *positionOptions) position(cmd *cobra.Command) *spatial.Point {
	if !cmd.Flags().Changed("lat") && !cmd.Flags().Changed("lng") {
		return nil
	}

	return &spatial.Point{Lat: o.Lat, Lng: o.Lng}
}
