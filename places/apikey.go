// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

const (
	// APIKeyEnv is the environment variable holding the Google Places key.
	APIKeyEnv = "GOOGLE_MAPS_API_KEY"
	// ProjectEnv overrides the project searched for a key through ADC.
	ProjectEnv = "NEARBY_GCP_PROJECT"
	// KeyDisplayName is the display name of the key looked up through ADC.
	KeyDisplayName = "Nearby Places Key"
)

// ResolveGoogleAPIKey returns the key from the environment, falling back to
// Application Default Credentials.
func ResolveGoogleAPIKey(ctx context.Context) (string, error) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, nil
	}

	log.Printf("%s is not set. Attempting to retrieve via ADC...", APIKeyEnv)

	key, err := apiKeyFromADC(ctx)
	if err != nil {
		return "", fmt.Errorf("%s is not set and ADC failed: %w", APIKeyEnv, err)
	}

	log.Println("Retrieved Google Maps API key via ADC")

	return key, nil
}

func apiKeyFromADC(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		// user credentials without a quota project
		projectID = os.Getenv(ProjectEnv)
	}

	if projectID == "" {
		return "", fmt.Errorf("no project in credentials and %s is not set", ProjectEnv)
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != KeyDisplayName {
			continue
		}

		// ListKeys redacts the secret.
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key %q has an empty key string", key.Name)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name %q not found in project %s", KeyDisplayName, projectID)
}
