package milvus

import (
	"context"
	"fmt"

	"warehouse-assistant-api/internal/application/retrieval"
)

// DocumentIndexAdapter 将向量仓储适配为应用层的 DocumentIndex port
type DocumentIndexAdapter struct {
	repo *Repository
}

func NewDocumentIndexAdapter(repo *Repository) *DocumentIndexAdapter {
	return &DocumentIndexAdapter{repo: repo}
}

var _ retrieval.DocumentIndex = (*DocumentIndexAdapter)(nil)

func (a *DocumentIndexAdapter) Search(ctx context.Context, params *retrieval.IndexSearchParams) ([]*retrieval.IndexSearchResult, error) {
	if a == nil || a.repo == nil {
		return nil, fmt.Errorf("document index not configured")
	}
	if params == nil {
		return nil, nil
	}

	out, err := a.repo.Search(ctx, &SearchParams{
		QueryVector: params.QueryVector,
		TopK:        params.TopK,
		Accelerated: params.Accelerated,
		Zone:        params.Zone,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*retrieval.IndexSearchResult, 0, len(out))
	for i := range out {
		v := out[i]
		if v == nil {
			continue
		}
		results = append(results, &retrieval.IndexSearchResult{
			ID:          v.ID,
			Score:       v.Score,
			Content:     v.Content,
			Source:      v.Source,
			SKU:         v.SKU,
			EquipmentID: v.EquipmentID,
			Location:    v.Location,
			ContentTime: v.ContentTime,
		})
	}
	return results, nil
}
