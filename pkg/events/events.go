package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog/log"
)

// ErrBackendUnavailable is returned when the search backend cannot be
// reached. Never swallowed into an empty result set.
var ErrBackendUnavailable = errors.New("event search backend unavailable")

const embeddingModelID = "e5_event_description"

type Event struct {
	ID string `json:"id,omitempty" groups:"basic"`

	Title       string `json:"title" groups:"basic"`
	Description string `json:"description" groups:"basic"`
	Location    string `json:"location" groups:"basic"`
	Topic       string `json:"topic" groups:"basic"`

	StartTime time.Time `json:"start_time" groups:"basic"`
	EndTime   time.Time `json:"end_time" groups:"basic"`

	URL        string `json:"url,omitempty" groups:"basic"`
	Presenting bool   `json:"presenting" groups:"basic"`
	TalkTitle  string `json:"talk_title,omitempty" groups:"basic"`
}

type Query struct {
	StartTime *time.Time
	EndTime   *time.Time

	Topic    string
	Title    string
	Location string

	Presenting *bool

	// DescriptionQuery switches the search to hybrid keyword + semantic
	// retrieval over the description embedding.
	DescriptionQuery string

	TopK int
}

// Store searches and creates events in an Elasticsearch index.
type Store struct {
	Client *elasticsearch.Client
	Index  string
}

func NewStore(client *elasticsearch.Client, index string) *Store {
	return &Store{
		Client: client,
		Index:  index,
	}
}

func (s *Store) Search(ctx context.Context, query Query) ([]Event, error) {
	if s.Client == nil {
		return nil, ErrBackendUnavailable
	}

	topK := query.TopK
	if topK == 0 {
		topK = 10
	}

	body := map[string]any{
		"size": topK,
		"_source": map[string]any{
			"excludes": []string{"description_vector"},
		},
	}

	if query.DescriptionQuery != "" {
		body["retriever"] = hybridRetriever(query.DescriptionQuery, topK)
	} else {
		body["query"] = boolQuery(query)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	response, err := s.Client.Search(
		s.Client.Search.WithContext(ctx),
		s.Client.Search.WithIndex(s.Index),
		s.Client.Search.WithBody(bytes.NewReader(encoded)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, err)
	}
	defer response.Body.Close()

	if response.IsError() {
		return nil, fmt.Errorf("event search failed: %s", response.Status())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				ID     string `json:"_id"`
				Source Event  `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(response.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode event search response: %w", err)
	}

	var matched []Event
	for _, hit := range searchResult.Hits.Hits {
		event := hit.Source
		event.ID = hit.ID

		matched = append(matched, event)
	}

	return matched, nil
}

func (s *Store) Create(ctx context.Context, event Event) (string, error) {
	if s.Client == nil {
		return "", ErrBackendUnavailable
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	request := esapi.IndexRequest{
		Index: s.Index,
		Body:  bytes.NewReader(encoded),
	}

	response, err := request.Do(ctx, s.Client)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBackendUnavailable, err)
	}
	defer response.Body.Close()

	if response.IsError() {
		return "", fmt.Errorf("failed to index event: %s", response.Status())
	}

	var indexResult struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(response.Body).Decode(&indexResult); err != nil {
		return "", fmt.Errorf("failed to decode index response: %w", err)
	}

	log.Debug().Str("id", indexResult.ID).Str("title", event.Title).Msg("Created event")

	return indexResult.ID, nil
}

func boolQuery(query Query) map[string]any {
	var must []map[string]any

	if query.StartTime != nil && query.EndTime != nil {
		must = append(must, map[string]any{
			"range": map[string]any{
				"start_time": map[string]any{
					"gte": query.StartTime.Format(time.RFC3339),
					"lte": query.EndTime.Format(time.RFC3339),
				},
			},
		})
	}
	if query.Topic != "" {
		must = append(must, map[string]any{"match": map[string]any{"topic": query.Topic}})
	}
	if query.Title != "" {
		must = append(must, map[string]any{"match": map[string]any{"title": query.Title}})
	}
	if query.Location != "" {
		must = append(must, map[string]any{"match": map[string]any{"location": query.Location}})
	}
	if query.Presenting != nil {
		must = append(must, map[string]any{"term": map[string]any{"presenting": *query.Presenting}})
	}

	if len(must) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}

	return map[string]any{
		"bool": map[string]any{"must": must},
	}
}

// hybridRetriever is a reciprocal rank fusion of a keyword multi_match and a
// knn lookup over the description embedding.
func hybridRetriever(descriptionQuery string, topK int) map[string]any {
	return map[string]any{
		"rrf": map[string]any{
			"retrievers": []map[string]any{
				{
					"standard": map[string]any{
						"query": map[string]any{
							"multi_match": map[string]any{
								"query":  descriptionQuery,
								"fields": []string{"title", "description", "topic"},
							},
						},
					},
				},
				{
					"knn": map[string]any{
						"field": "description_vector",
						"query_vector_builder": map[string]any{
							"text_embedding": map[string]any{
								"model_id":   embeddingModelID,
								"model_text": descriptionQuery,
							},
						},
						"k":              topK,
						"num_candidates": 3 * topK,
					},
				},
			},
			"rank_window_size": topK,
			"rank_constant":    20,
		},
	}
}
