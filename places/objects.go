// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig locates an S3 compatible object store.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// ObjectStoreConfigFromEnv reads the MINIO_* environment variables.
func ObjectStoreConfigFromEnv() (ObjectStoreConfig, error) {
	cfg := ObjectStoreConfig{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		Region:    os.Getenv("MINIO_REGION"),
	}

	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return cfg, fmt.Errorf("missing one or more required environment variables: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}

	return cfg, nil
}

// ParseObjectURI splits an s3://bucket/key URI. ok is false for anything
// else.
func ParseObjectURI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}

	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}

	return bucket, key, true
}

// OpenSeed opens a seed file from the local filesystem or, for s3:// URIs,
// from the object store described by cfg.
func OpenSeed(ctx context.Context, uri string, cfg func() (ObjectStoreConfig, error)) (io.ReadCloser, error) {
	bucket, key, ok := ParseObjectURI(uri)
	if !ok {
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("opening seed file: %w", err)
		}

		return f, nil
	}

	c, err := cfg()
	if err != nil {
		return nil, err
	}

	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	object, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", uri, err)
	}

	// GetObject is lazy; Stat surfaces a missing object now.
	if _, err := object.Stat(); err != nil {
		object.Close()

		return nil, fmt.Errorf("getting %s: %w", uri, err)
	}

	return object, nil
}
