package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSearchWithoutBackend(t *testing.T) {
	store := NewStore(nil, "events")

	_, err := store.Search(context.Background(), Query{Topic: "transit"})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("got %v, want ErrBackendUnavailable", err)
	}
}

func TestCreateWithoutBackend(t *testing.T) {
	store := NewStore(nil, "events")

	_, err := store.Create(context.Background(), Event{Title: "Ferry talk"})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("got %v, want ErrBackendUnavailable", err)
	}
}

func TestBoolQuery(t *testing.T) {
	t.Run("no filters means match all", func(t *testing.T) {
		query := boolQuery(Query{})

		if _, found := query["match_all"]; !found {
			t.Errorf("query = %v, want match_all", query)
		}
	})

	t.Run("filters become must clauses", func(t *testing.T) {
		start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)
		presenting := true

		query := boolQuery(Query{
			StartTime:  &start,
			EndTime:    &end,
			Topic:      "transit",
			Title:      "ferry",
			Location:   "Bremerton",
			Presenting: &presenting,
		})

		boolClause, found := query["bool"].(map[string]any)
		if !found {
			t.Fatalf("query = %v, want bool clause", query)
		}

		must, found := boolClause["must"].([]map[string]any)
		if !found {
			t.Fatalf("bool clause = %v, want must list", boolClause)
		}
		if len(must) != 5 {
			t.Fatalf("got %d must clauses, want 5", len(must))
		}

		rangeClause, found := must[0]["range"].(map[string]any)
		if !found {
			t.Fatalf("first clause = %v, want range", must[0])
		}
		startTimeRange := rangeClause["start_time"].(map[string]any)
		if startTimeRange["gte"] != "2025-08-01T00:00:00Z" {
			t.Errorf("range gte = %v", startTimeRange["gte"])
		}
		if startTimeRange["lte"] != "2025-08-31T00:00:00Z" {
			t.Errorf("range lte = %v", startTimeRange["lte"])
		}

		termClause, found := must[4]["term"].(map[string]any)
		if !found {
			t.Fatalf("last clause = %v, want term", must[4])
		}
		if termClause["presenting"] != true {
			t.Errorf("presenting term = %v", termClause["presenting"])
		}
	})

	t.Run("time range requires both ends", func(t *testing.T) {
		start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

		query := boolQuery(Query{StartTime: &start})

		if _, found := query["match_all"]; !found {
			t.Errorf("query = %v, want match_all when only one end is set", query)
		}
	})
}

func TestHybridRetriever(t *testing.T) {
	retriever := hybridRetriever("farmers market", 10)

	rrf, found := retriever["rrf"].(map[string]any)
	if !found {
		t.Fatalf("retriever = %v, want rrf", retriever)
	}

	retrievers := rrf["retrievers"].([]map[string]any)
	if len(retrievers) != 2 {
		t.Fatalf("got %d retrievers, want keyword and knn", len(retrievers))
	}

	standard := retrievers[0]["standard"].(map[string]any)
	multiMatch := standard["query"].(map[string]any)["multi_match"].(map[string]any)
	if multiMatch["query"] != "farmers market" {
		t.Errorf("multi_match query = %v", multiMatch["query"])
	}

	knn := retrievers[1]["knn"].(map[string]any)
	if knn["field"] != "description_vector" {
		t.Errorf("knn field = %v", knn["field"])
	}
	if knn["k"] != 10 {
		t.Errorf("knn k = %v", knn["k"])
	}
	if knn["num_candidates"] != 30 {
		t.Errorf("knn num_candidates = %v", knn["num_candidates"])
	}

	builder := knn["query_vector_builder"].(map[string]any)["text_embedding"].(map[string]any)
	if builder["model_id"] != embeddingModelID {
		t.Errorf("model_id = %v", builder["model_id"])
	}
	if builder["model_text"] != "farmers market" {
		t.Errorf("model_text = %v", builder["model_text"])
	}

	if rrf["rank_window_size"] != 10 {
		t.Errorf("rank_window_size = %v", rrf["rank_window_size"])
	}
	if rrf["rank_constant"] != 20 {
		t.Errorf("rank_constant = %v", rrf["rank_constant"])
	}
}
