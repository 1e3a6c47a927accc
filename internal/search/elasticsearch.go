package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/events/config"
	"example.com/backstage/services/events/internal/models"
)

// ElasticClient provides integration with Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// IndexEvent indexes an event document. effectiveStatus is the read-time
// status so searches can distinguish finished events.
func (c *ElasticClient) IndexEvent(ctx context.Context, event *models.Event, effectiveStatus models.EventStatus) error {
	if c == nil {
		return nil
	}

	log.Info().Str("event_id", event.ID.String()).Msg("indexing event")

	eventDoc := map[string]interface{}{
		"id":               event.ID.String(),
		"title":            event.Title,
		"description":      event.Description,
		"venue":            event.Venue,
		"status":           event.Status,
		"effective_status": effectiveStatus,
		"organizer_id":     event.OrganizerID.String(),
		"tags":             event.TagNames(),
		"created_at":       event.CreatedAt.Format(time.RFC3339),
	}
	if event.FinalizedDate != nil {
		eventDoc["finalized_date"] = event.FinalizedDate.Format(time.RFC3339)
	}
	if event.ScheduleDeadline != nil {
		eventDoc["schedule_deadline"] = event.ScheduleDeadline.Format(time.RFC3339)
	}

	docJson, err := json.Marshal(eventDoc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event document")
	}

	indexName := config.FormatIndex(c.config, c.config.Index)
	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: event.ID.String(),
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.New(fmt.Sprintf("Elasticsearch returned an error: %s", res.String()))
	}

	return nil
}
