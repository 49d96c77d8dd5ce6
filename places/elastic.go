// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jcodagnone/nearby/spatial"
	"github.com/jcodagnone/nearby/utils/textutils"
	"github.com/olivere/elastic/v7"
)

// DefaultElasticIndex is the index queried when none is configured.
const DefaultElasticIndex = "places"

const elasticMapping = `{
  "mappings": {
    "properties": {
      "name":     {"type": "text"},
      "address":  {"type": "text"},
      "category": {"type": "keyword"},
      "location": {"type": "geo_point"}
    }
  }
}`

type elasticPlace struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Address  string           `json:"address,omitempty"`
	Category string           `json:"category"`
	Location elastic.GeoPoint `json:"location"`
}

// ElasticClient looks places up in an Elasticsearch index with a geo_point
// "location" field.
type ElasticClient struct {
	client *elastic.Client
	index  string
	size   int
}

// NewElasticClient connects to the cluster at url. Sniffing is disabled as
// clusters usually sit behind a single endpoint.
func NewElasticClient(url, index string, opts ...elastic.ClientOptionFunc) (*ElasticClient, error) {
	if index == "" {
		index = DefaultElasticIndex
	}

	opts = append([]elastic.ClientOptionFunc{elastic.SetURL(url), elastic.SetSniff(false)}, opts...)

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return &ElasticClient{client: client, index: index, size: 100}, nil
}

// QueryNearby implements Client.
func (c *ElasticClient) QueryNearby(ctx context.Context, q Query) (*SearchResult, error) {
	if q.Position == nil {
		return nil, &RepositoryError{Kind: KindNoLocation, Message: "no position supplied"}
	}

	query := elastic.NewBoolQuery().Filter(
		elastic.NewGeoDistanceQuery("location").
			Point(q.Position.Lat, q.Position.Lng).
			Distance(fmt.Sprintf("%.0fm", q.Radius)),
	)

	if tags := q.Filter.Tags(); len(tags) > 0 {
		values := make([]any, len(tags))
		for i, t := range tags {
			values[i] = t
		}

		query = query.Filter(elastic.NewTermsQuery("category", values...))
	}

	searchResult, err := c.client.Search().
		Index(c.index).
		Query(query).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(q.Position.Lat, q.Position.Lng).
			Asc().
			Unit("m").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(c.size).
		Do(ctx)
	if err != nil {
		return nil, unavailable("searching elasticsearch", err)
	}

	ret := make([]*Place, 0, len(searchResult.Hits.Hits))

	for _, hit := range searchResult.Hits.Hits {
		var doc elasticPlace
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			log.Printf("Error unmarshalling hit %s: %s", hit.Id, err)

			continue
		}

		if doc.ID == "" {
			doc.ID = hit.Id
		}

		ret = append(ret, &Place{
			ID:       doc.ID,
			Name:     doc.Name,
			Address:  doc.Address,
			Category: doc.Category,
			Point:    spatial.Point{Lat: doc.Location.Lat, Lng: doc.Location.Lon},
		})
	}

	return &SearchResult{Places: ret}, nil
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (c *ElasticClient) EnsureIndex(ctx context.Context) error {
	exists, err := c.client.IndexExists(c.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", c.index, err)
	}

	if exists {
		return nil
	}

	resp, err := c.client.CreateIndex(c.index).BodyString(elasticMapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", c.index, err)
	}

	if !resp.Acknowledged {
		log.Printf("CreateIndex %s was not acknowledged", c.index)
	}

	return nil
}

// SavePlaces bulk indexes places, keyed by their ID.
func (c *ElasticClient) SavePlaces(ctx context.Context, ps []*Place) error {
	if len(ps) == 0 {
		return nil
	}

	bulk := c.client.Bulk()

	for _, p := range ps {
		doc := elasticPlace{
			ID:       p.ID,
			Name:     p.Name,
			Address:  p.Address,
			Category: textutils.NormalizeTag(p.Category),
			Location: elastic.GeoPoint{Lat: p.Point.Lat, Lon: p.Point.Lng},
		}
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Index(c.index).Id(p.ID).Doc(doc))
	}

	resp, err := bulk.Do(ctx)
	if err != nil {
		return fmt.Errorf("executing bulk request: %w", err)
	}

	var errs []error

	for _, item := range resp.Failed() {
		if item.Error != nil {
			errs = append(errs, fmt.Errorf("indexing %s: %s", item.Id, item.Error.Reason))
		}
	}

	return errors.Join(errs...)
}
