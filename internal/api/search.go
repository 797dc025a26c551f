// internal/api/search.go
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"bloodlink/internal/common/database"
	"bloodlink/internal/common/logger"
	"bloodlink/internal/models"
)

// SQLSearcher is the ILIKE fallback implemented by the hospital store.
type SQLSearcher interface {
	SearchPartners(ctx context.Context, query, city string) ([]models.Hospital, error)
}

// DirectorySearch queries elasticsearch for the hospital directory and falls
// back to SQL when elasticsearch is unconfigured or unavailable.
type DirectorySearch struct {
	es     *database.ElasticsearchClient
	sql    SQLSearcher
	logger logger.Logger
}

func NewDirectorySearch(es *database.ElasticsearchClient, sqlSearcher SQLSearcher, log logger.Logger) *DirectorySearch {
	return &DirectorySearch{
		es:     es,
		sql:    sqlSearcher,
		logger: log.WithFields(map[string]interface{}{"component": "directory-search"}),
	}
}

func (d *DirectorySearch) Search(ctx context.Context, query, city string) ([]models.Hospital, error) {
	if d.es == nil {
		return d.sql.SearchPartners(ctx, query, city)
	}

	hospitals, err := d.searchES(ctx, query, city)
	if err != nil {
		d.logger.WithError(err).Warn("elasticsearch search failed, falling back to sql", map[string]interface{}{
			"query": query,
		})
		return d.sql.SearchPartners(ctx, query, city)
	}
	return hospitals, nil
}

func (d *DirectorySearch) searchES(ctx context.Context, query, city string) ([]models.Hospital, error) {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^2", "city", "address"},
			},
		},
	}
	filter := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_partner": true}},
	}
	if city != "" {
		filter = append(filter, map[string]interface{}{
			"match": map[string]interface{}{"city": city},
		})
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"size": 50,
	})
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	raw, err := d.es.Search(ctx, string(body))
	if err != nil {
		return nil, err
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source models.Hospital `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hospitals := make([]models.Hospital, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		hospitals = append(hospitals, hit.Source)
	}
	return hospitals, nil
}
