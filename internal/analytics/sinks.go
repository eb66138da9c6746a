package analytics

import (
	"context"
	"fmt"
	"net/http"

	httpclient "leadcapture/internal/common/http"
)

// HTTPSink POSTs each event as JSON to a collector URL.
type HTTPSink struct {
	url    string
	client *httpclient.Client
}

func NewHTTPSink(url string, client *httpclient.Client) *HTTPSink {
	return &HTTPSink{url: url, client: client}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Send(ctx context.Context, e Event) error {
	resp, err := s.client.SendJSON(ctx, http.MethodPost, s.url, e, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}

// Indexer is satisfied by *database.ElasticsearchClient.
type Indexer interface {
	Index(ctx context.Context, index, id string, doc interface{}) error
}

// ElasticsearchSink stores events as documents keyed by event id.
type ElasticsearchSink struct {
	es    Indexer
	index string
}

func NewElasticsearchSink(es Indexer, index string) *ElasticsearchSink {
	return &ElasticsearchSink{es: es, index: index}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

func (s *ElasticsearchSink) Send(ctx context.Context, e Event) error {
	return s.es.Index(ctx, s.index, e.ID, e)
}
