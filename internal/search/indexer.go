// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"loan-matching-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// MatchIndexer mirrors persisted matches into Elasticsearch so support
// tooling can query them by score and reason text. Postgres remains the
// source of truth; a lost index write costs a stale search result, not
// a lost match.
type MatchIndexer struct {
	client *elasticsearch.Client
	index  string
}

func NewMatchIndexer(client *elasticsearch.Client, index string) *MatchIndexer {
	return &MatchIndexer{client: client, index: index}
}

type matchDocument struct {
	UserID       string   `json:"user_id"`
	ProductID    string   `json:"product_id"`
	MatchScore   float64  `json:"match_score"`
	MatchReasons []string `json:"match_reasons"`
	UpdatedAt    string   `json:"updated_at"`
}

// IndexMatch writes one match document, keyed by the (user, product)
// pair so re-runs overwrite rather than duplicate.
func (i *MatchIndexer) IndexMatch(ctx context.Context, match models.Match) error {
	doc := matchDocument{
		UserID:       match.UserID,
		ProductID:    match.ProductID,
		MatchScore:   match.MatchScore,
		MatchReasons: match.MatchReasons,
		UpdatedAt:    match.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal match document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: fmt.Sprintf("%s:%s", match.UserID, match.ProductID),
		Body:       bytes.NewReader(payload),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index match document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index match document: %s", res.Status())
	}
	return nil
}
